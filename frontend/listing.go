package frontend

import "strings"

const (
	// DefaultListOptions is the listing used when no option is given.
	DefaultListOptions = "-cilmH"
	// AllListOptions is the preset of the list-all command.
	AllListOptions = "-acilmCHh"
)

// ListOptions selects the daemon's directory listing columns.
type ListOptions struct {
	All          bool
	Color        bool
	Icons        bool
	List         bool
	CreationTime bool
	ModifiedTime bool
	AccessTime   bool
	Hour         bool
	Headers      bool

	// Raw replaces the flags above with a literal option string.
	Raw string
	// SetDefault makes these options the default for later listings.
	SetDefault bool
	// NoOutput skips the listing, which is useful with SetDefault.
	NoOutput bool
}

// String returns the option string sent to the daemon. No options gives "-".
func (o ListOptions) String() string {
	if o.Raw != "" {
		return "-" + o.Raw
	}

	var b strings.Builder
	b.WriteByte('-')
	for _, flag := range []struct {
		on     bool
		letter byte
	}{
		{o.All, 'a'},
		{o.Color, 'c'},
		{o.Icons, 'i'},
		{o.List, 'l'},
		{o.CreationTime, 'C'},
		{o.ModifiedTime, 'm'},
		{o.AccessTime, 'A'},
		{o.Hour, 'H'},
		{o.Headers, 'h'},
	} {
		if flag.on {
			b.WriteByte(flag.letter)
		}
	}
	return b.String()
}

// ListDir asks the daemon to list dir, resolved against cwd. An empty dir
// lists cwd itself.
func (f *Frontend) ListDir(dir, cwd string, opts ListOptions) (string, error) {
	if err := f.ready(); err != nil {
		return "", err
	}

	opt := opts.String()
	f.mu.Lock()
	if opts.SetDefault {
		f.listDefault = opt
	}
	if opt == "-" {
		opt = f.listDefault
	}
	f.mu.Unlock()

	if opts.NoOutput {
		return "", nil
	}
	return f.client.ListDir(opt, listTarget(dir, cwd))
}

// ListDirAll lists dir with every column enabled.
func (f *Frontend) ListDirAll(dir, cwd string) (string, error) {
	if err := f.ready(); err != nil {
		return "", err
	}
	return f.client.ListDir(AllListOptions, listTarget(dir, cwd))
}

func listTarget(dir, cwd string) string {
	if dir == "" {
		return cwd
	}
	return joinPath(cwd, dir)
}
