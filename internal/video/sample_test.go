package video_test

import (
	"testing"

	"subfetch/internal/video"
)

func TestIsSample(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"movie-sample.mkv", true},
		{"Movie.2010.720p.SAMPLE.mkv", true},
		{"sample-movie.mkv", true},
		{"/downloads/show/show.s01e01.sample.avi", true},
		{"samples.mkv", false},
		{"Movie.2010.720p.mkv", false},
		{"The.Sample.Collector.2019.mkv", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := video.IsSample(tt.name); got != tt.want {
				t.Errorf("IsSample(%q) = %v, want %v", tt.name, got, tt.want)
			}
		})
	}
}

func TestIsVideoFile(t *testing.T) {
	exts := []string{".mkv", ".mp4"}
	if !video.IsVideoFile("/a/Movie.MKV", exts) {
		t.Fatal("expected uppercase extension to match")
	}
	if video.IsVideoFile("/a/Movie.srt", exts) {
		t.Fatal("expected subtitle to be rejected")
	}
	if video.IsVideoFile("/a/Movie", exts) {
		t.Fatal("expected extensionless file to be rejected")
	}
}
