// Package errors provides coded, actionable errors for the vtree command
// and its configuration loader.
//
// Each error has a code (e.g. "E120") registered with a category, a short
// message and a longer explanation. Call sites add a hint, a location in a
// file and the underlying cause:
//
//	err := errors.New("E120").
//	    WithLocation("vtree.json", 4, 17).
//	    WithSuggestion("Remove the trailing comma").
//	    Wrap(syntaxErr)
//
//	errors.PrintError(err)
//	// ERROR E120: Invalid configuration file
//	//
//	//   vtree.json:4:17
//	//
//	//       3 │   "server": {
//	//   →   4 │     "addr": ":8080",
//	//         │                 ^
//	//       5 │   },
//	//
//	//   Hint: Remove the trailing comma
//
// The engine and server packages do not use this package; they return
// plain sentinel errors that callers match with errors.Is.
package errors
