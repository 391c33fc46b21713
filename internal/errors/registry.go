package errors

import "sort"

// Template defines a registered error.
type Template struct {
	Category Category
	Message  string
	Detail   string
}

var registry = map[string]Template{
	// Configuration (E120-E139)
	"E120": {
		Category: CategoryConfig,
		Message:  "Invalid configuration file",
		Detail:   "The configuration file is not valid JSON or YAML, or has a value of the wrong type.",
	},
	"E121": {
		Category: CategoryConfig,
		Message:  "Missing required configuration",
		Detail:   "A setting required by the selected options is empty.",
	},
	"E122": {
		Category: CategoryConfig,
		Message:  "Invalid listen address",
		Detail:   "server.addr must be host:port, where host may be empty.",
	},
	"E123": {
		Category: CategoryConfig,
		Message:  "Value out of range",
		Detail:   "A numeric or duration setting is negative or beyond its limit.",
	},
	"E124": {
		Category: CategoryConfig,
		Message:  "Configuration file not found",
		Detail:   "The file passed with --config does not exist.",
	},
	"E125": {
		Category: CategoryConfig,
		Message:  "Invalid environment file",
		Detail:   "The file passed with --env-file could not be read as KEY=value lines.",
	},

	// Command line (E140-E149)
	"E140": {
		Category: CategoryCLI,
		Message:  "Unknown demo app",
		Detail:   "The serve command hosts one of the built-in demo components.",
	},
	"E141": {
		Category: CategoryCLI,
		Message:  "Server failed",
		Detail:   "The HTTP listener could not start or stopped with an error.",
	},

	// Archive (E150-E159)
	"E150": {
		Category: CategoryArchive,
		Message:  "Archive unavailable",
		Detail:   "The configured frame archive could not be opened.",
	},
	"E151": {
		Category: CategoryArchive,
		Message:  "Stream not found",
		Detail:   "The archive has no frames recorded under this stream name.",
	},
	"E152": {
		Category: CategoryArchive,
		Message:  "Corrupt stream",
		Detail:   "A recorded frame could not be decoded or applied.",
	},
}

// Codes returns all registered codes in order.
func Codes() []string {
	codes := make([]string, 0, len(registry))
	for code := range registry {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// Lookup returns the template for a code.
func Lookup(code string) (Template, bool) {
	t, ok := registry[code]
	return t, ok
}
