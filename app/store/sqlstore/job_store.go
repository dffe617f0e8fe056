package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"

	"github.com/quka-ai/synthesis/app/store"
	"github.com/quka-ai/synthesis/pkg/register"
	"github.com/quka-ai/synthesis/pkg/types"
)

func init() {
	register.RegisterFunc[*Provider](RegisterKey{}, "job_store", func(provider *Provider) {
		provider.stores.JobStore = NewJobStore(provider)
	})
}

type JobStore struct {
	CommonFields
	columns map[string]struct{}
}

func NewJobStore(provider SqlProviderAchieve) *JobStore {
	s := &JobStore{}
	s.SetProvider(provider)
	s.SetTable(types.TABLE_JOBS)
	s.SetAllColumns(
		"id", types.JOB_FIELD_STATUS, types.JOB_FIELD_CURRENT_STEP,
		types.JOB_FIELD_SUMMARIZE_COMPLETED, types.JOB_FIELD_HOOKS_COMPLETED, types.JOB_FIELD_SCRIPT_COMPLETED, types.JOB_FIELD_AUDIO_COMPLETED,
		types.JOB_FIELD_SUMMARY, types.JOB_FIELD_HOOKS, types.JOB_FIELD_SCRIPT,
		types.JOB_FIELD_AUDIO_FILE_NAME, types.JOB_FIELD_STORAGE_URL, types.JOB_FIELD_TRANSCRIPT_URL,
		types.JOB_FIELD_METRICS, types.JOB_FIELD_ERROR,
		types.JOB_FIELD_CREATED_AT, types.JOB_FIELD_START_TIME, types.JOB_FIELD_COMPLETED_AT, types.JOB_FIELD_FAILED_AT, types.JOB_FIELD_UPDATED_AT,
	)
	s.columns = make(map[string]struct{}, len(s.GetAllColumns()))
	for _, c := range s.GetAllColumns() {
		s.columns[c] = struct{}{}
	}
	return s
}

// BuildUpsert 只写入 fields 中出现的列，冲突时更新这些列，其余列保持原值
func (s *JobStore) BuildUpsert(jobID string, fields map[string]any) (string, []interface{}, error) {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		if k == "id" {
			continue
		}
		if _, ok := s.columns[k]; !ok {
			return "", nil, fmt.Errorf("unknown job column %q", k)
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	columns := append([]string{"id"}, keys...)
	values := []interface{}{jobID}
	sets := make([]string, 0, len(keys))
	for _, k := range keys {
		values = append(values, columnValue(fields[k]))
		sets = append(sets, fmt.Sprintf("%s = EXCLUDED.%s", k, k))
	}

	suffix := "ON CONFLICT (id) DO NOTHING"
	if len(sets) > 0 {
		suffix = "ON CONFLICT (id) DO UPDATE SET " + strings.Join(sets, ", ")
	}

	query := sq.Insert(s.GetTable()).
		Columns(columns...).
		Values(values...).
		Suffix(suffix)

	queryString, args, err := query.ToSql()
	if err != nil {
		return "", nil, ErrorSqlBuild(err)
	}
	return queryString, args, nil
}

func columnValue(v any) any {
	switch v := v.(type) {
	case []string:
		// hooks 列为 NOT NULL，nil 切片写成空数组
		if v == nil {
			return pq.StringArray{}
		}
		return pq.StringArray(v)
	case types.JobStatus:
		return string(v)
	case types.JobStep:
		return string(v)
	}
	return v
}

func (s *JobStore) Update(ctx context.Context, jobID string, fields map[string]any) error {
	queryString, args, err := s.BuildUpsert(jobID, fields)
	if err != nil {
		return err
	}
	_, err = s.GetMaster(ctx).Exec(queryString, args...)
	return err
}

func (s *JobStore) Get(ctx context.Context, jobID string) (*types.Job, error) {
	query := sq.Select(s.GetAllColumns()...).
		From(s.GetTable()).
		Where(sq.Eq{"id": jobID})

	queryString, args, err := query.ToSql()
	if err != nil {
		return nil, ErrorSqlBuild(err)
	}

	var job types.Job
	if err = s.GetReplica(ctx).Get(&job, queryString, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &job, nil
}
