// SPDX-License-Identifier: GPL-3.0-or-later
package domain

// ParsedMessage is the display-ready form of a fetched message. Fields are
// never empty: the parser substitutes the documented placeholder literals
// for anything absent.
type ParsedMessage struct {
	From    string
	To      string
	Subject string
	Date    string
	Body    string
}
