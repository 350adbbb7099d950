package service

import (
	"errors"
	"slices"
	"testing"

	"github.com/jjenkins/althingi/internal/model"
)

func TestParseStagesOrdersByDependency(t *testing.T) {
	got, err := ParseStages([]string{"votes", "Parties", "bills", "votes"})
	if err != nil {
		t.Fatal(err)
	}
	want := []model.StageKind{model.StageParties, model.StageBills, model.StageVotes}
	if !slices.Equal(got, want) {
		t.Errorf("ParseStages = %v, want %v", got, want)
	}
}

func TestParseStagesAll(t *testing.T) {
	got, err := ParseStages([]string{"all"})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != len(model.StageOrder)-1 || slices.Contains(got, model.StageInterests) {
		t.Errorf("all = %v, want every stage but interests", got)
	}

	got, err = ParseStages([]string{"all", "interests"})
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(got, model.StageOrder) {
		t.Errorf("all interests = %v", got)
	}
}

func TestParseStagesRejectsUnknown(t *testing.T) {
	for _, names := range [][]string{{"bogus"}, {}, {"parties", "agencies"}} {
		_, err := ParseStages(names)
		var cfgErr *ConfigurationError
		if !errors.As(err, &cfgErr) {
			t.Errorf("ParseStages(%v) err = %v, want ConfigurationError", names, err)
		}
	}
}
