package config

import (
	"fmt"
	"io"
	"time"

	"gopkg.in/yaml.v3"
)

// fileConfig mirrors the processing/quality/database sections of config.yaml.
// Pointer fields distinguish "absent" from zero values.
type fileConfig struct {
	Processing struct {
		ChunkSize         *int     `yaml:"chunk_size"`
		ChunkOverlap      *int     `yaml:"chunk_overlap"`
		MinChunkSize      *int     `yaml:"min_chunk_size"`
		MaxChunkSize      *int     `yaml:"max_chunk_size"`
		ProcessingVersion *string  `yaml:"processing_version"`
		EmbeddingModel    *string  `yaml:"embedding_model"`
		BatchSize         *int     `yaml:"batch_size"`
		RateLimitDelay    *float64 `yaml:"rate_limit_delay"` // seconds
		MaxRetries        *int     `yaml:"max_retries"`
	} `yaml:"processing"`

	Database struct {
		SimilarityThreshold *float64 `yaml:"similarity_threshold"`
		MaxMatches          *int     `yaml:"max_matches"`
	} `yaml:"database"`

	Quality struct {
		BaseScore   *float64 `yaml:"base_score"`
		LengthBonus struct {
			OptimalMin *int     `yaml:"optimal_min"`
			OptimalMax *int     `yaml:"optimal_max"`
			Bonus      *float64 `yaml:"bonus"`
		} `yaml:"length_bonus"`
		StructureIndicators []string `yaml:"structure_indicators"`
		TechnicalIndicators []string `yaml:"technical_indicators"`
		SentenceRange       struct {
			Min   *int     `yaml:"min"`
			Max   *int     `yaml:"max"`
			Bonus *float64 `yaml:"bonus"`
		} `yaml:"sentence_range"`
	} `yaml:"quality"`
}

// ApplyFile overlays the keys present in a YAML document onto p.
func ApplyFile(p *Pipeline, r io.Reader) error {
	var fc fileConfig
	if err := yaml.NewDecoder(r).Decode(&fc); err != nil && err != io.EOF {
		return fmt.Errorf("%w: decode config file: %v", ErrInvalid, err)
	}

	setInt(&p.ChunkSize, fc.Processing.ChunkSize)
	setInt(&p.ChunkOverlap, fc.Processing.ChunkOverlap)
	setInt(&p.MinChunkSize, fc.Processing.MinChunkSize)
	setInt(&p.MaxChunkSize, fc.Processing.MaxChunkSize)
	setString(&p.ProcessingVersion, fc.Processing.ProcessingVersion)
	setString(&p.EmbeddingModel, fc.Processing.EmbeddingModel)
	setInt(&p.BatchSize, fc.Processing.BatchSize)
	setInt(&p.MaxRetries, fc.Processing.MaxRetries)
	if fc.Processing.RateLimitDelay != nil {
		p.RateLimitDelay = time.Duration(*fc.Processing.RateLimitDelay * float64(time.Second))
	}

	setFloat(&p.SimilarityThreshold, fc.Database.SimilarityThreshold)
	setInt(&p.MaxMatches, fc.Database.MaxMatches)

	q := &p.Quality
	setFloat(&q.BaseScore, fc.Quality.BaseScore)
	setInt(&q.OptimalMin, fc.Quality.LengthBonus.OptimalMin)
	setInt(&q.OptimalMax, fc.Quality.LengthBonus.OptimalMax)
	setFloat(&q.LengthBonus, fc.Quality.LengthBonus.Bonus)
	setInt(&q.SentenceMin, fc.Quality.SentenceRange.Min)
	setInt(&q.SentenceMax, fc.Quality.SentenceRange.Max)
	setFloat(&q.SentenceBonus, fc.Quality.SentenceRange.Bonus)
	if len(fc.Quality.StructureIndicators) > 0 {
		q.StructureMarkers = fc.Quality.StructureIndicators
	}
	if len(fc.Quality.TechnicalIndicators) > 0 {
		q.TechnicalMarkers = fc.Quality.TechnicalIndicators
	}
	return nil
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}

func setFloat(dst *float64, v *float64) {
	if v != nil {
		*dst = *v
	}
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}
