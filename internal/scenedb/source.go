package scenedb

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/aidanlsb/sceneql/internal/scene"
)

var _ scene.Source = (*DB)(nil)

// ListAll returns every stored node in import order. It reports ErrNotImported
// when the database has never received a scene.
func (d *DB) ListAll() ([]scene.NodeInfo, error) {
	at, err := d.meta("imported_at")
	if err != nil {
		return nil, err
	}
	if at == "" {
		return nil, ErrNotImported
	}

	rows, err := d.db.Query(`SELECT id, type FROM nodes ORDER BY seq`)
	if err != nil {
		return nil, err
	}
	return scanRows(rows, func(rows *sql.Rows) (scene.NodeInfo, error) {
		var id, typ string
		err := rows.Scan(&id, &typ)
		return scene.NodeInfo{ID: scene.NodeID(id), Type: typ}, err
	})
}

func (d *DB) List(filter scene.Filter) ([]scene.NodeID, error) {
	var where string
	switch filter {
	case scene.FilterDefault:
		where = "is_default = 1"
	case scene.FilterReferenced:
		where = "is_referenced = 1"
	case scene.FilterDisplayLayer:
		where = "type = '" + scene.TypeDisplayLayer + "'"
	default:
		return nil, fmt.Errorf("unknown filter %d", filter)
	}
	return d.queryIDs(`SELECT id FROM nodes WHERE ` + where + ` ORDER BY seq`)
}

func (d *DB) Parent(id scene.NodeID) (scene.NodeID, bool, error) {
	var parent sql.NullString
	err := d.db.QueryRow(`SELECT parent FROM nodes WHERE id = ?`, string(id)).Scan(&parent)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, fmt.Errorf("%w: %s", scene.ErrNodeNotFound, id)
	}
	if err != nil {
		return "", false, err
	}
	if !parent.Valid {
		return "", false, nil
	}
	return scene.NodeID(parent.String), true, nil
}

func (d *DB) Children(id scene.NodeID) ([]scene.NodeID, error) {
	if err := d.requireNode(id); err != nil {
		return nil, err
	}
	return d.queryIDs(`SELECT id FROM nodes WHERE parent = ? ORDER BY seq`, string(id))
}

func (d *DB) Shapes(id scene.NodeID) ([]scene.NodeID, error) {
	if err := d.requireNode(id); err != nil {
		return nil, err
	}
	return d.queryIDs(`SELECT id FROM nodes WHERE parent = ? AND is_shape = 1 ORDER BY seq`, string(id))
}

// SetMemberships returns the object sets holding id. Display layers are
// reported through Connections instead.
func (d *DB) SetMemberships(id scene.NodeID) ([]scene.NodeID, error) {
	if err := d.requireNode(id); err != nil {
		return nil, err
	}
	return d.queryIDs(`
		SELECT m.set_id FROM set_members m
		JOIN nodes s ON s.id = m.set_id
		WHERE m.member = ? AND s.type != ?
		ORDER BY s.seq`, string(id), scene.TypeDisplayLayer)
}

func (d *DB) InheritedTypes(id scene.NodeID) ([]string, error) {
	if err := d.requireNode(id); err != nil {
		return nil, err
	}
	rows, err := d.db.Query(`SELECT type FROM node_types WHERE node = ? ORDER BY seq`, string(id))
	if err != nil {
		return nil, err
	}
	return scanRows(rows, func(rows *sql.Rows) (string, error) {
		var t string
		err := rows.Scan(&t)
		return t, err
	})
}

// Connections returns the direct connections of id. Upstream includes the
// display layers holding id; downstream of a display layer includes its
// members.
func (d *DB) Connections(id scene.NodeID, dir scene.Direction) ([]scene.NodeID, error) {
	if err := d.requireNode(id); err != nil {
		return nil, err
	}
	if dir == scene.Upstream {
		return d.queryIDs(`
			SELECT src FROM (
				SELECT src, 0 AS grp, seq FROM connections WHERE dst = ?
				UNION ALL
				SELECT m.set_id, 1, s.seq FROM set_members m
				JOIN nodes s ON s.id = m.set_id
				WHERE m.member = ? AND s.type = ?
			) ORDER BY grp, seq`, string(id), string(id), scene.TypeDisplayLayer)
	}
	return d.queryIDs(`
		SELECT dst FROM (
			SELECT c.dst, 0 AS grp, n.seq AS seq FROM connections c
			JOIN nodes n ON n.id = c.dst
			WHERE c.src = ?
			UNION ALL
			SELECT m.member, 1, m.seq FROM set_members m
			JOIN nodes s ON s.id = m.set_id
			WHERE m.set_id = ? AND s.type = ?
		) ORDER BY grp, seq`, string(id), string(id), scene.TypeDisplayLayer)
}

func (d *DB) AttributeExists(id scene.NodeID, attr string) (bool, error) {
	if err := d.requireNode(id); err != nil {
		return false, err
	}
	var n int
	err := d.db.QueryRow(`SELECT COUNT(*) FROM attributes WHERE node = ? AND name = ?`, string(id), attr).Scan(&n)
	return n > 0, err
}

func (d *DB) AttributeValue(id scene.NodeID, attr string) (scene.Value, error) {
	if err := d.requireNode(id); err != nil {
		return scene.Absent(), err
	}
	var kind int
	var value sql.NullString
	err := d.db.QueryRow(`SELECT kind, value FROM attributes WHERE node = ? AND name = ?`, string(id), attr).Scan(&kind, &value)
	if errors.Is(err, sql.ErrNoRows) {
		return scene.Absent(), nil
	}
	if err != nil {
		return scene.Absent(), err
	}
	switch scene.ValueKind(kind) {
	case scene.KindBool:
		return scene.Bool(value.String == "true"), nil
	case scene.KindText:
		return scene.Text(value.String), nil
	}
	return scene.Absent(), nil
}

func (d *DB) requireNode(id scene.NodeID) error {
	var n int
	if err := d.db.QueryRow(`SELECT COUNT(*) FROM nodes WHERE id = ?`, string(id)).Scan(&n); err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", scene.ErrNodeNotFound, id)
	}
	return nil
}

func (d *DB) queryIDs(query string, args ...any) ([]scene.NodeID, error) {
	rows, err := d.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	return scanRows(rows, func(rows *sql.Rows) (scene.NodeID, error) {
		var id string
		err := rows.Scan(&id)
		return scene.NodeID(id), err
	})
}

// scanRows scans all rows with scan and closes them.
func scanRows[T any](rows *sql.Rows, scan func(*sql.Rows) (T, error)) ([]T, error) {
	defer rows.Close()

	var out []T
	for rows.Next() {
		item, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, rows.Err()
}
