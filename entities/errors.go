package entities

import "errors"

var ErrNotFound = errors.New("resource not found")
var ErrEmptyHash = errors.New("empty hash")
var ErrNoMorePages = errors.New("no more pages")
