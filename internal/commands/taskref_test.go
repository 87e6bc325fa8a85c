package commands

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskdeck/internal/exitcode"
	"taskdeck/internal/service"
	"taskdeck/internal/store"
	"taskdeck/internal/testutil"
)

func TestParseTaskRef(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		want    TaskRef
		wantErr string
	}{
		{name: "number", args: []string{"5"}, want: TaskRef{Num: 5}},
		{name: "padded", args: []string{" 12 "}, want: TaskRef{Num: 12}},
		{name: "id", args: []string{"id:abc-1"}, want: TaskRef{ID: "abc-1"}},
		{name: "none", args: nil, wantErr: "task reference required"},
		{name: "empty id", args: []string{"id:"}, wantErr: "task reference required"},
		{name: "zero", args: []string{"0"}, wantErr: "task number out of range: 0"},
		{name: "letters", args: []string{"a1"}, wantErr: "invalid task reference: a1"},
		{name: "non-ascii digits", args: []string{"١"}, wantErr: "invalid task reference: ١"},
		{name: "extra", args: []string{"1", "2"}, wantErr: "unexpected argument: 2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseTaskRef(tt.args)
			if tt.wantErr != "" {
				require.EqualError(t, err, tt.wantErr)
				assert.Equal(t, exitcode.UserError, ExitCode(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTaskRef_Resolve(t *testing.T) {
	gw := testutil.NewFakeGateway()
	gw.AddTask(service.Task{ID: "t1", Title: "Buy milk"})
	gw.AddTask(service.Task{ID: "t2", Title: "Call mom", Starred: true})
	gw.AddTask(service.Task{ID: "t3", Title: "Old", Archived: true})

	st := store.New(gw)
	require.NoError(t, st.Load(context.Background()))

	starred := &viewFlags{filter: "starred"}
	got, err := resolveRef(st, starred, []string{"1"})
	require.NoError(t, err)
	assert.Equal(t, "t2", got.ID)

	_, err = resolveRef(st, starred, []string{"2"})
	assert.EqualError(t, err, "task number out of range: 2")

	// Explicit ids are not limited to the view.
	got, err = resolveRef(st, starred, []string{"id:t3"})
	require.NoError(t, err)
	assert.Equal(t, "Old", got.Title)

	_, err = resolveRef(st, starred, []string{"id:missing"})
	assert.True(t, store.IsNotFound(err))

	_, err = resolveRef(st, &viewFlags{filter: "someday"}, []string{"1"})
	assert.EqualError(t, err, "unknown filter: someday")
	assert.Equal(t, exitcode.UserError, ExitCode(err))

	got, err = resolveRef(st, &viewFlags{search: "MILK"}, []string{"1"})
	require.NoError(t, err)
	assert.Equal(t, "t1", got.ID)
}
