package parquet

import "errors"

var (
	ErrBadMagic            = errors.New("parquet: bad file magic")
	ErrMissingRequiredField = errors.New("parquet: required field missing")
	ErrTypeMismatch        = errors.New("parquet: value does not match field type")
	ErrRepeatedShape       = errors.New("parquet: repeated field value is not list-shaped")
	ErrSizeMismatch        = errors.New("parquet: decompressed size mismatch")
)
