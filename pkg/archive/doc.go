// Package archive persists the edit frames a host publishes.
//
// An archive is a set of named streams. Each stream is the ordered list of
// FrameEdits frames of one host session, exactly as they went over the
// wire. Replaying a stream into a render.Document reproduces the
// renderer's tree at any recorded sequence number.
//
// MemoryStore serves tests. DirStore keeps one append-only file per stream
// and S3Store keeps one object per frame under a bucket prefix. Further
// kinds, such as the sqlite store in package sqlstore, plug in through
// Register.
package archive
