package types

import "time"

// Segment is one timestamped unit of caption text.
type Segment struct {
	Timestamp int    `json:"timestamp"`
	Text      string `json:"text"`
}

type Fallacy struct {
	ID          string `json:"id"`
	Timestamp   int    `json:"timestamp"`
	Type        string `json:"type"`
	Explanation string `json:"explanation"`
	Context     string `json:"context"`
}

// VideoData is what the cache stores per video: the formatted transcript
// ("<ts> - <text>" per line) plus fetch metadata.
type VideoData struct {
	VideoID    string    `json:"video_id"`
	Title      string    `json:"title"`
	Transcript string    `json:"transcript"`
	FetchedAt  time.Time `json:"fetched_at"`
}

type Report struct {
	VideoID   string    `json:"video_id"`
	Title     string    `json:"title"`
	FetchedAt time.Time `json:"fetched_at"`
	Segments  []Segment `json:"segments"`
	Fallacies []Fallacy `json:"fallacies"`
}
