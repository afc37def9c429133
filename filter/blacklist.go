package filter

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/hupe1980/kmerindex/blobstore"
	"github.com/hupe1980/kmerindex/kmer"
)

// BlacklistDir is the blob prefix under which blacklist files live.
const BlacklistDir = "blacklists"

// ErrMalformedBlacklist is returned for a blacklist line missing its count column.
var ErrMalformedBlacklist = errors.New("malformed blacklist")

// BlacklistName returns the blob name of the blacklist for k-mers of wordSize bases.
func BlacklistName(wordSize int) string {
	return fmt.Sprintf("%s/w%d", BlacklistDir, wordSize)
}

// ParseBlacklist reads "KMER<TAB>COUNT" lines and returns the packed hashes of
// every k-mer whose count is at least minCount, in file order.
//
// A line without a tab is fatal. Lines with an invalid base, more than 32 bases
// or an unparsable count are skipped with a warning. Empty lines are ignored.
func ParseBlacklist(r io.Reader, minCount int64, logger *slog.Logger) ([]uint64, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	var hashes []uint64
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimRight(sc.Text(), "\r")
		if text == "" {
			continue
		}

		seq, countField, ok := strings.Cut(text, "\t")
		if !ok {
			return nil, fmt.Errorf("%w: line %d has no count column", ErrMalformedBlacklist, line)
		}

		hash, err := kmer.Encode(seq)
		if err != nil {
			logger.Warn("skipping blacklist entry", "line", line, "kmer", seq, "error", err)
			continue
		}
		count, err := strconv.ParseInt(strings.TrimSpace(countField), 10, 64)
		if err != nil || count < 0 {
			logger.Warn("skipping blacklist entry", "line", line, "count", countField)
			continue
		}
		if count < minCount {
			continue
		}
		hashes = append(hashes, hash)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read blacklist: %w", err)
	}
	return hashes, nil
}

// BlacklistExists reports whether store holds a blacklist for wordSize.
func BlacklistExists(ctx context.Context, store blobstore.Store, wordSize int) (bool, error) {
	return blobstore.Exists(ctx, store, BlacklistName(wordSize))
}

// LoadBlacklist parses the blacklist for wordSize from store.
func LoadBlacklist(ctx context.Context, store blobstore.Store, wordSize int, minCount int64, logger *slog.Logger) ([]uint64, error) {
	name := BlacklistName(wordSize)
	data, err := blobstore.ReadAll(ctx, store, name)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", name, err)
	}
	hashes, err := ParseBlacklist(bytes.NewReader(data), minCount, logger)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", name, err)
	}
	if logger != nil {
		logger.Debug("loaded blacklist", "name", name, "entries", len(hashes), "min_count", minCount)
	}
	return hashes, nil
}
