package executor

import (
	"context"
	"fmt"

	"github.com/ternarybob/netopscore/internal/common"
	"github.com/ternarybob/netopscore/internal/models"
)

// writeSink applies one DatabaseSink descriptor against the target
// context's stores (§4.7 step 6). Each row is gated by Filter, including
// the synthetic has_power_reading predicate; update_lldp is a targeted
// patch keyed by (ip, port) rather than a full row write.
func (e *Executor) writeSink(ctx context.Context, sink models.DatabaseSink, tctx *models.TargetContext) error {
	rows := tctx.Stores[sink.SourceKey]
	if rows == nil {
		return nil
	}

	for _, row := range rows {
		if !matchesFilter(row, sink.Filter) {
			continue
		}
		if err := e.writeRow(ctx, sink, tctx.IP, row); err != nil {
			return &common.SinkError{Table: sink.Table, Key: tctx.IP, Err: err}
		}
	}
	return nil
}

func (e *Executor) writeRow(ctx context.Context, sink models.DatabaseSink, ip string, row map[string]interface{}) error {
	if e.Inventory == nil {
		return nil
	}

	switch sink.Operation {
	case models.SinkOpUpdateLLDP:
		port := portKey(row)
		if port == "" {
			return fmt.Errorf("update_lldp row missing port key")
		}
		_, _, err := e.Inventory.FindOrCreate(ctx, "interface", fmt.Sprintf("%s:%s", ip, port), row)
		return err

	case models.SinkOpInsert, models.SinkOpUpsert:
		_, _, err := e.Inventory.FindOrCreate(ctx, sink.Table, ip, row)
		return err

	default:
		return nil
	}
}
