package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseItemType(t *testing.T) {
	tests := []struct {
		raw     string
		want    ItemType
		wantErr bool
	}{
		{"followup", ItemFollowup, false},
		{"Solution", ItemSolution, false},
		{"task", ItemTask, false},
		{"addAnswerFollowup", ItemFollowup, false},
		{"closeSolution", ItemSolution, false},
		{"addAnswerTask", ItemTask, false},
		{"", "", true},
		{"alert(1)", "", true},
		{"closeFollowup();alert(1)", "", true},
		{"ticket", "", true},
		{"addAnswerCloseFollowup", "", true},
		{"closeAddAnswerTask", "", true},
		{"addAnswerAddAnswerSolution", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := ParseItemType(tt.raw)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnknownItemType)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestItemTypeSelectors(t *testing.T) {
	assert.Equal(t, ".itilfollowup form[name=asset_form] div.row div.tox-editor-container iframe", ItemFollowup.EditorSelector())
	assert.Equal(t, ".itilsolution form[name=asset_form] div.row .order-first .row", ItemSolution.ContainerSelector())
	assert.Equal(t, "Task", ItemTask.Title())
}
