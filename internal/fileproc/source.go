package fileproc

import (
	"context"
	"fmt"

	"github.com/panbanda/resprune/pkg/source"
)

// MapSourceFiles reads each file from src and hands its content to fn, in
// parallel with context cancellation support. Read failures are collected
// alongside processing failures and never stop the pool.
func MapSourceFiles[T any](
	ctx context.Context,
	files []string,
	src source.ContentSource,
	maxWorkers int,
	fn func(path string, content []byte) (T, error),
	onProgress ProgressFunc,
) ([]T, *ProcessingErrors) {
	return ForEachFileWithContext(ctx, files, maxWorkers, func(path string) (T, error) {
		content, err := src.Read(path)
		if err != nil {
			var zero T
			return zero, fmt.Errorf("read: %w", err)
		}
		return fn(path, content)
	}, onProgress)
}
