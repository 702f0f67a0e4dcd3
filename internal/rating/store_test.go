package rating

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_Record(t *testing.T) {
	tests := []struct {
		name     string
		affected int64
		execErr  error
		want     bool
		wantErr  bool
	}{
		{name: "new rating", affected: 1, want: true},
		{name: "duplicate ignored", affected: 0, want: false},
		{name: "database error", execErr: errors.New("connection refused"), wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()

			exec := mock.ExpectExec("INSERT INTO ratings").WithArgs(int64(1), int64(2), true)
			if tt.execErr != nil {
				exec.WillReturnError(tt.execErr)
			} else {
				exec.WillReturnResult(sqlmock.NewResult(0, tt.affected))
			}

			got, err := NewStore(db).Record(context.Background(), Rating{RaterID: 1, RatedID: 2, Positive: true})
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.want, got)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestStore_RecordSelf(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	_, err = NewStore(db).Record(context.Background(), Rating{RaterID: 5, RatedID: 5})
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_SummaryFor(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("FROM ratings").
		WithArgs(int64(2)).
		WillReturnRows(sqlmock.NewRows([]string{"positive", "negative"}).AddRow(7, 2))

	got, err := NewStore(db).SummaryFor(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, Summary{Positive: 7, Negative: 2}, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}
