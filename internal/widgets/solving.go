package widgets

import (
	"fmt"
	"unicode/utf8"

	"github.com/dyluth/ideaboard/pkg/board"
)

// Rule is the completion requirement of one problem-solving stage: the stage
// needs MaxCount boxes, each with at least MinLength characters of content.
type Rule struct {
	MinLength int `yaml:"min_length"`
	MaxCount  int `yaml:"max_count"`
}

// Rules maps each box type to its rule.
type Rules map[board.BoxType]Rule

// DefaultRules returns the rules used when none are configured.
func DefaultRules() Rules {
	return Rules{
		board.BoxDefine:  {MinLength: 20, MaxCount: 3},
		board.BoxAnalyze: {MinLength: 20, MaxCount: 3},
		board.BoxSolve:   {MinLength: 20, MaxCount: 3},
	}
}

// Validate checks every rule is usable.
func (r Rules) Validate() error {
	for _, bt := range board.BoxTypes {
		rule, ok := r[bt]
		if !ok {
			return fmt.Errorf("missing solving_problem rule for %s", bt)
		}
		if rule.MinLength < 0 {
			return fmt.Errorf("solving_problem.%s.min_length must be >= 0", bt)
		}
		if rule.MaxCount < 1 {
			return fmt.Errorf("solving_problem.%s.max_count must be >= 1", bt)
		}
	}
	return nil
}

// Locked derives the lock state of every SolvingProblem layer in entries.
// A stage is open when it is the first one, or when the previous stage is
// open, has at least MaxCount boxes and every one of them has at least
// MinLength characters.
func Locked(entries []board.Entry, rules Rules) map[string]bool {
	byType := map[board.BoxType][]board.SolvingProblem{}
	ids := map[board.BoxType][]string{}
	for _, e := range entries {
		sp, ok := e.Layer.(board.SolvingProblem)
		if !ok {
			continue
		}
		byType[sp.BoxType] = append(byType[sp.BoxType], sp)
		ids[sp.BoxType] = append(ids[sp.BoxType], e.ID)
	}

	open := map[board.BoxType]bool{}
	for i, bt := range board.BoxTypes {
		if i == 0 {
			open[bt] = true
			continue
		}
		prev := board.BoxTypes[i-1]
		open[bt] = open[prev] && complete(byType[prev], rules[prev])
	}

	locked := map[string]bool{}
	for bt, list := range ids {
		isOpen, known := open[bt]
		for _, id := range list {
			locked[id] = known && !isOpen
		}
	}
	return locked
}

func complete(boxes []board.SolvingProblem, rule Rule) bool {
	if len(boxes) < rule.MaxCount || len(boxes) == 0 {
		return false
	}
	for _, b := range boxes {
		if utf8.RuneCountInString(b.Content) < rule.MinLength {
			return false
		}
	}
	return true
}

// RecomputeLocks writes the derived lock state onto every SolvingProblem
// layer whose stored flag has drifted. It returns the number of layers
// rewritten.
func RecomputeLocks(tx *board.Tx, rules Rules) (int, error) {
	entries := tx.Entries()
	locked := Locked(entries, rules)

	changed := 0
	for _, e := range entries {
		sp, ok := e.Layer.(board.SolvingProblem)
		if !ok || sp.IsLocked == locked[e.ID] {
			continue
		}
		sp.IsLocked = locked[e.ID]
		if _, err := tx.PutLayer(e.ID, sp); err != nil {
			return changed, err
		}
		changed++
	}
	return changed, nil
}
