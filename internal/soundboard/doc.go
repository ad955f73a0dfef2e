// Package soundboard is the user-facing surface of the clip board.
// It ties the clip catalog, the content-addressed clip store and the
// playback coordinator together behind one Service.
package soundboard
