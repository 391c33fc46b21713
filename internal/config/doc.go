// Package config loads vtree.json (or vtree.yaml), the configuration of the
// vtree command.
//
// # Configuration File Structure
//
//	{
//	  "server": {
//	    "addr": ":8080",
//	    "frameBudget": "8ms",
//	    "patchHistory": 100,
//	    "eventQueue": 256,
//	    "readTimeout": "60s",
//	    "writeTimeout": "10s",
//	    "handshakeTimeout": "10s",
//	    "heartbeatInterval": "30s",
//	    "maxMessageSize": 65536,
//	    "shutdownTimeout": "15s",
//	    "allowedOrigins": ["https://example.com"]
//	  },
//	  "metrics": {
//	    "enabled": true,
//	    "namespace": "vtree"
//	  },
//	  "archive": {
//	    "kind": "dir",
//	    "dir": "frames"
//	  },
//	  "log": {
//	    "level": "info",
//	    "format": "text"
//	  }
//	}
//
// Every field is optional; missing fields take the defaults returned by New.
// Durations are Go duration strings. A relative archive.dir is resolved
// against the directory holding the file.
//
// The YAML form uses the same field names. Unknown fields are rejected in
// both forms.
//
// # Environment
//
// ApplyEnv overrides file values from VTREE_* variables, for example
// VTREE_ADDR, VTREE_LOG_LEVEL, VTREE_ARCHIVE_KIND or VTREE_FRAME_BUDGET.
// Schema returns the JSON Schema of the file.
package config
