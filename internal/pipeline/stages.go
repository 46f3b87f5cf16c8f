package pipeline

// Stage names in execution order.
const (
	StageExtractInfo    = "extract_info"
	StageExtractAudio   = "extract_audio"
	StageTranscribe     = "transcribe"
	StageAnalyze        = "analyze_content"
	StageKnowledgeGraph = "generate_knowledge_graph"
	StageFinalize       = "finalize"
)

// stageWeights apportion overall progress across stages. Transcription
// dominates wall time so it carries the largest share.
var stageWeights = []struct {
	name   string
	weight float64
}{
	{StageExtractInfo, 5},
	{StageExtractAudio, 15},
	{StageTranscribe, 40},
	{StageAnalyze, 25},
	{StageKnowledgeGraph, 10},
	{StageFinalize, 5},
}

// stageEstimateSeconds carries a nominal wall-clock cost per stage, used for
// the estimate returned at submit time. Transcription dominates, mirroring
// the progress weights.
var stageEstimateSeconds = map[string]int{
	StageExtractInfo:    10,
	StageExtractAudio:   30,
	StageTranscribe:     150,
	StageAnalyze:        45,
	StageKnowledgeGraph: 20,
	StageFinalize:       5,
}

// cacheHitEstimateSeconds is the estimate for submissions served from the
// result cache, which complete synchronously.
const cacheHitEstimateSeconds = 1

// stageSumEstimate totals the nominal stage costs for a fresh submission.
func stageSumEstimate() int {
	var total int
	for _, entry := range stageWeights {
		total += stageEstimateSeconds[entry.name]
	}
	return total
}

// progressBefore returns the cumulative percentage completed before the
// named stage starts. A failed job keeps this value so readers can see how
// far it got.
func progressBefore(stage string) float64 {
	var total float64
	for _, entry := range stageWeights {
		if entry.name == stage {
			return total
		}
		total += entry.weight
	}
	return total
}

// progressAfter returns the cumulative percentage once the named stage
// completes.
func progressAfter(stage string) float64 {
	var total float64
	for _, entry := range stageWeights {
		total += entry.weight
		if entry.name == stage {
			return total
		}
	}
	return total
}
