package valkey

import (
	"context"
	"strings"

	"github.com/valkey-io/valkey-go"

	"github.com/oceanclean/oceanclean/internal/pkg/doctree"
)

const scanBatch = 200

// Backend stores one document per key: prefix + path. Subtrees are found with
// SCAN over prefix + path + "/*"; path segments never contain glob characters.
type Backend struct {
	client valkey.Client
	prefix string
}

func (b *Backend) key(path string) string {
	return b.prefix + path
}

func (b *Backend) Get(ctx context.Context, path string) ([]byte, bool, error) {
	raw, err := b.client.Do(ctx, b.client.B().Get().Key(b.key(path)).Build()).AsBytes()
	if valkey.IsValkeyNil(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return raw, true, nil
}

func (b *Backend) Entries(ctx context.Context, path string) ([]doctree.Entry, error) {
	keys, err := b.subtreeKeys(ctx, path)
	if err != nil {
		return nil, err
	}
	out := make([]doctree.Entry, 0, len(keys))
	for _, k := range keys {
		raw, err := b.client.Do(ctx, b.client.B().Get().Key(k).Build()).AsBytes()
		if valkey.IsValkeyNil(err) {
			continue // deleted between SCAN and GET
		}
		if err != nil {
			return nil, err
		}
		out = append(out, doctree.Entry{Path: strings.TrimPrefix(k, b.prefix), Raw: raw})
	}
	return out, nil
}

func (b *Backend) Put(ctx context.Context, path string, raw []byte) error {
	return b.client.Do(ctx, b.client.B().Set().Key(b.key(path)).Value(valkey.BinaryString(raw)).Build()).Error()
}

func (b *Backend) DeleteTree(ctx context.Context, path string) error {
	keys, err := b.subtreeKeys(ctx, path)
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return b.client.Do(ctx, b.client.B().Del().Key(keys...).Build()).Error()
}

func (b *Backend) Ping(ctx context.Context) error {
	return b.client.Do(ctx, b.client.B().Ping().Build()).Error()
}

// subtreeKeys returns the key at path (if present) and every key beneath it.
func (b *Backend) subtreeKeys(ctx context.Context, path string) ([]string, error) {
	var keys []string
	pattern := b.prefix + "*"
	if path != "" {
		exists, err := b.client.Do(ctx, b.client.B().Exists().Key(b.key(path)).Build()).AsInt64()
		if err != nil {
			return nil, err
		}
		if exists > 0 {
			keys = append(keys, b.key(path))
		}
		pattern = b.key(path) + "/*"
	}

	var cursor uint64
	for {
		entry, err := b.client.Do(ctx, b.client.B().Scan().Cursor(cursor).Match(pattern).Count(scanBatch).Build()).AsScanEntry()
		if err != nil {
			return nil, err
		}
		keys = append(keys, entry.Elements...)
		cursor = entry.Cursor
		if cursor == 0 {
			return keys, nil
		}
	}
}
