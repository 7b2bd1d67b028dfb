package oracle

import (
	"context"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"gorm.io/driver/oracle/quoting"
)

// maxSynonymDepth bounds synonym chains so a cycle ends in ErrNotFound.
const maxSynonymDepth = 10

// describeSQL looks a name up as a table, a view, a private synonym and a
// public synonym, in that order of preference. Synonym rows carry their
// target, which is described in turn.
const describeSQL = `SELECT owner, table_name, db_link, priority FROM (
SELECT owner, table_name, NULL db_link, 1 priority FROM all_tables WHERE owner = :1 AND table_name = :2
UNION ALL
SELECT owner, view_name table_name, NULL db_link, 2 priority FROM all_views WHERE owner = :3 AND view_name = :4
UNION ALL
SELECT table_owner owner, table_name, db_link, 3 priority FROM all_synonyms WHERE owner = :5 AND synonym_name = :6
UNION ALL
SELECT table_owner owner, table_name, db_link, 4 priority FROM all_synonyms WHERE owner = 'PUBLIC' AND synonym_name = :7
) ORDER BY priority`

func (s *Session) Describe(ctx context.Context, name string) (string, string, error) {
	if strings.TrimSpace(name) == "" {
		return "", "", errors.Wrap(ErrArgument, "describe: empty name")
	}
	if strings.Contains(name, "@") {
		return "", "", errors.Wrapf(ErrArgument, "describe %s: database links are not supported", name)
	}
	owner, table := splitObjectName(name)
	if owner == "" {
		owner = s.Owner()
	}
	return s.describe(ctx, name, owner, table, 0)
}

func (s *Session) describe(ctx context.Context, name, owner, table string, depth int) (string, string, error) {
	if depth > maxSynonymDepth {
		return "", "", errors.Wrapf(ErrNotFound, "describe %s: synonym chain longer than %d", name, maxSynonymDepth)
	}

	row, err := s.SelectOne(ctx, describeSQL, owner, table, owner, table, owner, table, table)
	if errors.Is(err, ErrNotFound) {
		return "", "", errors.Wrapf(ErrNotFound, "describe %s: no table, view or synonym %s.%s", name, owner, table)
	}
	if err != nil {
		return "", "", err
	}

	values := row.Values()
	realOwner, _ := values[0].Str()
	realName, _ := values[1].Str()
	if priority, _ := rowInt(values[3]); priority <= 2 {
		return realOwner, realName, nil
	}
	if link, ok := values[2].Str(); ok && link != "" {
		return "", "", errors.Wrapf(ErrArgument, "describe %s: synonym points to %s.%s@%s", name, realOwner, realName, link)
	}
	s.logger.Info(ctx, "describe %s: synonym %s.%s -> %s.%s", name, owner, table, realOwner, realName)
	return s.describe(ctx, name, realOwner, realName, depth+1)
}

// splitObjectName splits [owner.]name. Unquoted names are upper cased the
// way Oracle resolves them; quoted parts keep their case.
func splitObjectName(name string) (owner, table string) {
	if quoting.ValidTableName(name) {
		name = strings.ToUpper(name)
	}
	owner, table, ok := strings.Cut(name, ".")
	if !ok {
		owner, table = "", owner
	}
	return strings.Trim(owner, `"`), strings.Trim(table, `"`)
}

func rowInt(v quoting.Value) (int64, bool) {
	if i, ok := v.Int(); ok {
		return i, true
	}
	if d, ok := v.Decimal(); ok {
		return d.IntPart(), true
	}
	if f, ok := v.Float(); ok {
		return int64(f), true
	}
	if s, ok := v.Str(); ok {
		i, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
		return i, err == nil
	}
	return 0, false
}
