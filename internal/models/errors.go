package models

import "errors"

// ErrMissingPrice means a leg has no usable price on a date
var ErrMissingPrice = errors.New("missing price")
