// Package record defines the business record collaborator a process links to.
package record

import (
	"context"

	"github.com/viant/ruleflow/model"
)

// Service creates, updates and reads business records.
type Service interface {
	// Save creates a record when ref is nil, otherwise updates it, and returns its reference.
	Save(ctx context.Context, config *model.ServiceConfig, ref *model.RecordRef, fields map[string]interface{}) (*model.RecordRef, error)

	// Fields returns record fields exposed to rule evaluation.
	Fields(ctx context.Context, ref *model.RecordRef) (map[string]interface{}, error)
}
