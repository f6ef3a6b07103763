package ffprobe

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"slices"
	"strconv"
	"strings"

	"subfetch/internal/language"
)

// showEntries limits the probe to what subtitle detection and resolution
// guessing read.
const showEntries = "stream=index,codec_type,codec_name,height:stream_tags:stream_disposition=attached_pic,forced"

// Result is the decoded stream listing of one container.
type Result struct {
	Streams []Stream `json:"streams"`
}

// Stream is one track of the container.
type Stream struct {
	Index       int               `json:"index"`
	CodecType   string            `json:"codec_type"`
	CodecName   string            `json:"codec_name"`
	Height      int               `json:"height"`
	Tags        map[string]string `json:"tags"`
	Disposition map[string]int    `json:"disposition"`
}

func (s Stream) is(kind string) bool { return strings.EqualFold(s.CodecType, kind) }

// Language returns the lowercased language tag. Matroska tracks without one
// report "und".
func (s Stream) Language() string {
	return language.ExtractFromTags(s.Tags)
}

// Inspect runs binary (ffprobe when empty) against path.
func Inspect(ctx context.Context, binary, path string) (Result, error) {
	if binary = strings.TrimSpace(binary); binary == "" {
		binary = "ffprobe"
	}
	if strings.TrimSpace(path) == "" {
		return Result{}, errors.New("ffprobe: empty path")
	}

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, binary, "-v", "error", "-hide_banner", "-show_entries", showEntries, "-of", "json", "--", path)
	cmd.Stderr = &stderr
	output, err := cmd.Output()
	if err != nil {
		if detail := strings.TrimSpace(stderr.String()); detail != "" {
			return Result{}, fmt.Errorf("ffprobe %s: %w: %s", path, err, detail)
		}
		return Result{}, fmt.Errorf("ffprobe %s: %w", path, err)
	}
	var result Result
	if err := json.Unmarshal(output, &result); err != nil {
		return Result{}, fmt.Errorf("ffprobe %s: decode output: %w", path, err)
	}
	return result, nil
}

// SubtitleLanguages returns the distinct alpha2 languages of the subtitle
// streams in stream order. undetermined reports at least one subtitle stream
// whose language is missing, "und" or unknown.
func (r Result) SubtitleLanguages() (languages []string, undetermined bool) {
	for _, stream := range r.Streams {
		if !stream.is("subtitle") {
			continue
		}
		code := language.ToISO2(stream.Language())
		switch {
		case code == "":
			undetermined = true
		case !slices.Contains(languages, code):
			languages = append(languages, code)
		}
	}
	return languages, undetermined
}

// resolutions are the release heights a stream is rounded up to when it is
// within 10% of one; letterboxed 1080p encodes are often 1036 or 800 high.
var resolutions = []int{2160, 1080, 720, 576, 480}

// Resolution names the height of the first real video stream, e.g. "1080p".
// Cover art streams are skipped. It returns "" when no stream reports a height.
func (r Result) Resolution() string {
	for _, stream := range r.Streams {
		if !stream.is("video") || stream.Height <= 0 || stream.Disposition["attached_pic"] == 1 {
			continue
		}
		height := stream.Height
		for _, standard := range resolutions {
			if height >= standard*9/10 {
				height = standard
				break
			}
		}
		return strconv.Itoa(height) + "p"
	}
	return ""
}
