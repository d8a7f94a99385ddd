package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/live-neon/neon-soul-sub003/internal/domain"
)

// completer is the single capability every provider implements: send one prompt,
// get back the model's text.
type completer interface {
	complete(ctx context.Context, prompt string, maxTokens int) (string, error)
}

type equivalenceResponse struct {
	Verdict    string `json:"verdict"`
	Confidence string `json:"confidence"`
}

func judgeEquivalence(ctx context.Context, c completer, textA, textB string) (*domain.EquivalenceJudgment, error) {
	result, err := c.complete(ctx, fmt.Sprintf(equivalencePrompt, textA, textB), 64)
	if err != nil {
		return nil, fmt.Errorf("judge equivalence: %w", err)
	}

	// Unparseable output is not an error here: the oracle maps an unknown band to the
	// lowest confidence and logs it.
	var resp equivalenceResponse
	if raw := ExtractJSON(result); raw == "" || json.Unmarshal([]byte(raw), &resp) != nil {
		return &domain.EquivalenceJudgment{Equivalent: looksEquivalent(result), Band: result}, nil
	}

	return &domain.EquivalenceJudgment{
		Equivalent: strings.EqualFold(strings.TrimSpace(resp.Verdict), "equivalent"),
		Band:       strings.ToLower(strings.TrimSpace(resp.Confidence)),
	}, nil
}

// looksEquivalent reads a bare-text verdict when the model ignored the JSON instruction.
func looksEquivalent(text string) bool {
	lower := strings.ToLower(text)
	return strings.Contains(lower, "equivalent") && !strings.Contains(lower, "not_equivalent") && !strings.Contains(lower, "not equivalent")
}

func describeConflict(ctx context.Context, c completer, stmtA, stmtB string) (*domain.ConflictResult, error) {
	result, err := c.complete(ctx, fmt.Sprintf(conflictPrompt, stmtA, stmtB), 256)
	if err != nil {
		return nil, fmt.Errorf("describe conflict: %w", err)
	}

	raw := ExtractJSON(result)
	if raw == "" {
		return nil, fmt.Errorf("parse conflict result: no JSON object (raw: %s)", result)
	}

	var conflict domain.ConflictResult
	if err := json.Unmarshal([]byte(raw), &conflict); err != nil {
		return nil, fmt.Errorf("parse conflict result: %w (raw: %s)", err, result)
	}
	conflict.Description = strings.TrimSpace(conflict.Description)
	if !conflict.Conflict {
		conflict.Description = ""
	}
	return &conflict, nil
}

// classifySignal never fails on malformed content; invalid fields come back empty and the
// caller applies its defaults.
func classifySignal(ctx context.Context, c completer, text string) (*domain.SignalClassification, error) {
	result, err := c.complete(ctx, fmt.Sprintf(classifyPrompt, text), 128)
	if err != nil {
		return nil, fmt.Errorf("classify signal: %w", err)
	}

	var cls domain.SignalClassification
	if raw := ExtractJSON(result); raw != "" {
		_ = json.Unmarshal([]byte(raw), &cls)
	}

	if !domain.ValidStance(string(cls.Stance)) {
		cls.Stance = ""
	}
	if !domain.ValidImportance(string(cls.Importance)) {
		cls.Importance = ""
	}
	if !domain.ValidSourceKind(string(cls.SourceKind)) {
		cls.SourceKind = ""
	}
	cls.Dimension = strings.TrimSpace(cls.Dimension)
	return &cls, nil
}
