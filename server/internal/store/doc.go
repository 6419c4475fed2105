// Package store holds the in-memory state of every production line: the
// current line reading plus bounded metric and notification histories.
// Updates from one tick are applied atomically per line and readers always
// receive copies.
package store
