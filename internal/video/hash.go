package video

import (
	"crypto/md5"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
)

// Hash algorithm names shared with providers.
const (
	HashOpenSubtitles = "opensubtitles"
	HashTheSubDB      = "thesubdb"
)

const hashChunkSize = 64 * 1024

// ErrFileTooSmall reports a file shorter than the hash algorithm's window.
var ErrFileTooSmall = errors.New("file too small to hash")

var hashers = map[string]func(*os.File, int64) (string, error){
	HashOpenSubtitles: openSubtitlesHash,
	HashTheSubDB:      theSubDBHash,
}

// ComputeHashes returns the digests for each requested algorithm. Unknown
// algorithms and files too small for an algorithm are skipped.
func ComputeHashes(path string, algorithms ...string) (map[string]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open video: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat video: %w", err)
	}

	hashes := make(map[string]string, len(algorithms))
	for _, algorithm := range algorithms {
		if _, done := hashes[algorithm]; done {
			continue
		}
		hasher, ok := hashers[algorithm]
		if !ok {
			continue
		}
		digest, err := hasher(file, info.Size())
		if errors.Is(err, ErrFileTooSmall) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("%s hash: %w", algorithm, err)
		}
		hashes[algorithm] = digest
	}
	return hashes, nil
}

// OpenSubtitlesHash computes the OpenSubtitles "moviehash": the file size plus
// the little-endian uint64 sum of the first and last 64 KiB.
func OpenSubtitlesHash(path string) (string, error) {
	return hashFile(path, openSubtitlesHash)
}

// TheSubDBHash computes the md5 of the first and last 64 KiB.
func TheSubDBHash(path string) (string, error) {
	return hashFile(path, theSubDBHash)
}

func hashFile(path string, fn func(*os.File, int64) (string, error)) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer file.Close()
	info, err := file.Stat()
	if err != nil {
		return "", err
	}
	return fn(file, info.Size())
}

func openSubtitlesHash(file *os.File, size int64) (string, error) {
	if size < 2*hashChunkSize {
		return "", ErrFileTooSmall
	}
	sum := uint64(size)
	buf := make([]byte, hashChunkSize)
	for _, offset := range []int64{0, size - hashChunkSize} {
		if _, err := file.ReadAt(buf, offset); err != nil && !errors.Is(err, io.EOF) {
			return "", err
		}
		for i := 0; i < hashChunkSize; i += 8 {
			sum += binary.LittleEndian.Uint64(buf[i:])
		}
	}
	return fmt.Sprintf("%016x", sum), nil
}

func theSubDBHash(file *os.File, size int64) (string, error) {
	if size < hashChunkSize {
		return "", ErrFileTooSmall
	}
	h := md5.New()
	for _, offset := range []int64{0, size - hashChunkSize} {
		if _, err := io.Copy(h, io.NewSectionReader(file, offset, hashChunkSize)); err != nil {
			return "", err
		}
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
