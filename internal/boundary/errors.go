package boundary

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound            = errors.New("boundary file not found")
	ErrNoPendingShapes     = errors.New("no pending shapes to merge")
	ErrUnsupportedGeometry = errors.New("only Polygon and MultiPolygon geometries are accepted")
)

// LoadError：边界文件存在但无法解析
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("load boundaries: %v", e.Err)
	}
	return fmt.Sprintf("load boundaries %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }
