package core

import "errors"

var ErrNotFound = errors.New("employee not found")
