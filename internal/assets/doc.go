// Package assets resolves the image members of a pass.
//
// Static assets (icon and logo images) are read once and shared by every request. When a card
// has a profile image it is downloaded and turned into circular thumbnails. A failed download
// never fails the request: the pass is issued without a thumbnail.
package assets
