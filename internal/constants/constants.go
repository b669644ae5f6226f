package constants

const (
	Version        = `0.0.1`
	ConfigFile     = `anvil`
	ConfigFileType = `yaml`
	ConfigDir      = `/.anvil/`

	// DefaultViewportHeight is the fallback pixel height of the editor
	// viewport when the terminal size cannot be determined.
	DefaultViewportHeight = 900.0
	// DefaultContainerWidth is the pixel width blocks wrap against.
	DefaultContainerWidth = 760.0
)
