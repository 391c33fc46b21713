// Package render maintains a renderer-side document built from edit scripts.
//
// A Document is the reference implementation of the renderer contract: it
// keeps the mount id table and the node stack, applies edits strictly in
// order and rejects scripts that address ids it does not know. The document
// can be rendered to HTML at any point:
//
//	doc := render.NewDocument()
//	if err := doc.Apply(edits); err != nil {
//	    return err
//	}
//	html := doc.HTML()
//
// Hosts use a Document to mirror what a connected renderer shows; tests use
// it to check that edit scripts converge on the expected markup.
package render
