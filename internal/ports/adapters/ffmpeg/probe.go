package ffmpeg

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/reelforge/reelforge/internal/types"
)

// ParseProbeJSON converts raw ffprobe JSON output into a MediaProbe.
// Exported so tests can run without a real ffprobe binary.
func ParseProbeJSON(data []byte) (types.MediaProbe, error) {
	var probe types.MediaProbe
	var raw ffprobeOutput
	if err := json.Unmarshal(data, &raw); err != nil {
		return probe, fmt.Errorf("parse ffprobe JSON: %w", err)
	}

	probe.DurationSeconds = parseFloat(raw.Format.Duration)
	probe.SizeBytes = parseInt64(raw.Format.Size)
	for _, s := range raw.Streams {
		switch s.CodecType {
		case "video":
			if probe.VideoCodec == "" {
				probe.Width = s.Width
				probe.Height = s.Height
				probe.VideoCodec = s.CodecName
			}
		case "audio":
			probe.HasAudioStream = true
		}
	}
	return probe, nil
}

// --- ffprobe JSON wire types (numbers arrive as strings) ---

type ffprobeOutput struct {
	Format  ffprobeFormat   `json:"format"`
	Streams []ffprobeStream `json:"streams"`
}

type ffprobeFormat struct {
	Duration string `json:"duration"`
	Size     string `json:"size"`
}

type ffprobeStream struct {
	CodecName string `json:"codec_name"`
	CodecType string `json:"codec_type"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
}

func parseFloat(s string) float64 {
	f, _ := strconv.ParseFloat(strings.TrimSpace(s), 64)
	return f
}

func parseInt64(s string) int64 {
	n, _ := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	return n
}
