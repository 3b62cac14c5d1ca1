// Package runmd renders markdown documents whose javascript code blocks are
// executed, splicing the console output of each block back into the page.
//
// A block is executable when its opening fence carries runmd flags:
//
//	```javascript --run
//	console.log('hi')
//	```
//
// renders as
//
//	```javascript
//	console.log('hi')
//	```
//
//	⇒ hi
package runmd

import "github.com/rs/zerolog"

const (
	// OutputMarker prefixes every line of captured console output.
	OutputMarker = "⇒ "

	// Link is the attribution linked from the page footer.
	Link = "[![RunMD Logo](http://i.imgur.com/h0FVyzU.png)](https://github.com/broofa/runmd)"
)

// Placement controls where captured output is spliced relative to the
// closing fence of a block.
type Placement string

const (
	// PlacementAfter puts output below the closing fence.
	PlacementAfter Placement = "after"
	// PlacementInline puts output inside the fence, just before it closes.
	PlacementInline Placement = "inline"
)

// Valid reports whether p names a known placement. The zero value is valid
// and means PlacementAfter.
func (p Placement) Valid() bool {
	switch p {
	case "", PlacementAfter, PlacementInline:
		return true
	}
	return false
}

// Options configures a single render pass.
type Options struct {
	// Filename is the document path. Relative require() calls resolve
	// against its directory and errors report it.
	Filename string

	Placement Placement
	Logger    zerolog.Logger
}
