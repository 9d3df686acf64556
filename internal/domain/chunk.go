package domain

// ChunkCandidate is one retrieved transcript passage awaiting re-ranking.
// RetrievalScore carries the fused score assigned by the upstream hybrid
// search (serialized as rrf_score for compatibility with the retrieval
// pipeline); it is treated as opaque here and only used as a fallback.
type ChunkCandidate struct {
	ChunkID        string  `json:"chunk_id"`
	ChunkText      string  `json:"chunk_text"`
	RecordingID    int64   `json:"recording_id"`
	SpeakerName    string  `json:"speaker_name,omitempty"`
	CallTitle      string  `json:"call_title,omitempty"`
	RetrievalScore float64 `json:"rrf_score"`
}

// ScoreSource records how a candidate obtained its rerank score.
type ScoreSource string

const (
	// ScoreSourceModel means the cross-encoder produced the score.
	ScoreSourceModel ScoreSource = "model"
	// ScoreSourceNeutral means the scorer responded with an uninterpretable
	// payload and the documented neutral score was substituted.
	ScoreSourceNeutral ScoreSource = "neutral"
	// ScoreSourceRetrieval means scoring failed outright and the original
	// retrieval score was used instead.
	ScoreSourceRetrieval ScoreSource = "retrieval_fallback"
)

// RerankedResult is a ChunkCandidate with its final relevance placement.
// It exists only for the duration of one re-ranking call.
type RerankedResult struct {
	ChunkCandidate
	RerankScore float64 `json:"rerank_score"`
	FinalRank   int     `json:"final_rank"`

	// Source is kept for logging and tests, not for the wire.
	Source ScoreSource `json:"-"`
}
