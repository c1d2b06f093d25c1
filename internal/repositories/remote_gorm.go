package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// remoteNode is one leaf of the tree, stored under its full path.
type remoteNode struct {
	Path  string `gorm:"primaryKey;type:varchar(512)"`
	Value string `gorm:"type:text;not null"`
}

func (remoteNode) TableName() string { return "remote_nodes" }

// GORMRemote is a GORM implementation of RemoteCollectionClient. Each scalar
// leaf is a row; objects are rebuilt from path prefixes on read.
type GORMRemote struct {
	db *gorm.DB
}

// NewGORMRemote creates a GORMRemote and migrates its table.
func NewGORMRemote(db *gorm.DB) (*GORMRemote, error) {
	if err := db.AutoMigrate(&remoteNode{}); err != nil {
		return nil, fmt.Errorf("failed to migrate remote_nodes: %w", err)
	}
	return &GORMRemote{db: db}, nil
}

// Read rebuilds the subtree at path and decodes it into dst.
func (r *GORMRemote) Read(ctx context.Context, path string, dst interface{}) (bool, error) {
	segments, err := splitPath(path)
	if err != nil {
		return false, err
	}
	p := strings.Join(segments, "/")

	var nodes []remoteNode
	if err := subtree(r.db.WithContext(ctx), p).Find(&nodes).Error; err != nil {
		return false, remoteErr("read", p, err)
	}
	leaves := make(map[string]interface{}, len(nodes))
	for _, n := range nodes {
		var v interface{}
		if err := json.Unmarshal([]byte(n.Value), &v); err != nil {
			return false, remoteErr("read", p, fmt.Errorf("corrupt leaf %s: %w", n.Path, err))
		}
		leaves[n.Path] = v
	}
	if len(leaves) == 0 {
		return false, nil
	}
	if err := decodeInto(unflatten(p, leaves), dst); err != nil {
		return false, remoteErr("read", p, err)
	}
	return true, nil
}

// Write replaces the subtree at path.
func (r *GORMRemote) Write(ctx context.Context, path string, value interface{}) error {
	segments, err := splitPath(path)
	if err != nil {
		return err
	}
	node, err := normalize(value)
	if err != nil {
		return remoteErr("write", path, err)
	}
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return replace(tx, segments, node)
	})
	if err != nil {
		return remoteErr("write", path, err)
	}
	return nil
}

// Merge replaces each named child of path inside one transaction.
func (r *GORMRemote) Merge(ctx context.Context, path string, fields map[string]interface{}) error {
	if _, err := splitPath(path); err != nil {
		return err
	}
	children := make(map[string]interface{}, len(fields))
	for key, value := range fields {
		child := Path(path, key)
		if _, err := splitPath(child); err != nil {
			return err
		}
		node, err := normalize(value)
		if err != nil {
			return remoteErr("merge", path, err)
		}
		children[child] = node
	}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for child, node := range children {
			segments, _ := splitPath(child)
			if err := replace(tx, segments, node); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return remoteErr("merge", path, err)
	}
	return nil
}

// Delete removes the subtree at path.
func (r *GORMRemote) Delete(ctx context.Context, path string) error {
	segments, err := splitPath(path)
	if err != nil {
		return err
	}
	p := strings.Join(segments, "/")
	if err := subtree(r.db.WithContext(ctx), p).Delete(&remoteNode{}).Error; err != nil {
		return remoteErr("delete", p, err)
	}
	return nil
}

// AppendGenerateID stores value under a new time-ordered key.
func (r *GORMRemote) AppendGenerateID(ctx context.Context, path string, value interface{}) (string, error) {
	segments, err := splitPath(path)
	if err != nil {
		return "", err
	}
	node, err := normalize(value)
	if err != nil {
		return "", remoteErr("append", path, err)
	}
	var key string
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for {
			id, err := uuid.NewV7()
			if err != nil {
				return fmt.Errorf("generate key: %w", err)
			}
			key = id.String()
			child := append(append([]string{}, segments...), key)
			var count int64
			if err := subtree(tx.Model(&remoteNode{}), strings.Join(child, "/")).Count(&count).Error; err != nil {
				return err
			}
			if count == 0 {
				return replace(tx, child, node)
			}
		}
	})
	if err != nil {
		return "", remoteErr("append", path, err)
	}
	return key, nil
}

// replace drops everything at and below segments, any scalar ancestor leaf,
// then inserts the leaves of node.
func replace(tx *gorm.DB, segments []string, node interface{}) error {
	p := strings.Join(segments, "/")
	if err := subtree(tx, p).Delete(&remoteNode{}).Error; err != nil {
		return err
	}
	if up := ancestors(segments); len(up) > 0 {
		if err := tx.Where("path IN ?", up).Delete(&remoteNode{}).Error; err != nil {
			return err
		}
	}
	leaves := make(map[string]interface{})
	flatten(p, node, leaves)
	if len(leaves) == 0 {
		return nil
	}
	rows := make([]remoteNode, 0, len(leaves))
	for path, v := range leaves {
		raw, err := json.Marshal(v)
		if err != nil {
			return err
		}
		rows = append(rows, remoteNode{Path: path, Value: string(raw)})
	}
	return tx.CreateInBatches(rows, 200).Error
}

// subtree scopes q to the node at p and its descendants.
func subtree(q *gorm.DB, p string) *gorm.DB {
	if p == "" {
		return q.Where("1 = 1")
	}
	return q.Where(`path = ? OR path LIKE ? ESCAPE '\'`, p, escapeLike(p)+"/%")
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
