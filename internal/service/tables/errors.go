package tables

import "errors"

var ErrTableNotFound = errors.New("table not found")
