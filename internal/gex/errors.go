package gex

import "errors"

var ErrInsufficientData = errors.New("gamma profile has no usable strikes")
