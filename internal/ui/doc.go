// Package ui provides semantic text formatting for CLI output.
//
// Formatters colorize content when the terminal supports it. When NO_COLOR
// is set or colors are unavailable, text decorations are used instead:
//
//	ui.Code.Sprint("kowhai keys sync")   // `kowhai keys sync`
//	ui.Device.Sprint("laptop")           // 'laptop'
//	ui.Highlight.Sprint("work-notes")    // 'work-notes'
//	ui.Muted.Sprint("unsynced")          // (unsynced)
//
// Path, Success, Error, Warning and Info have no decoration.
package ui
