package http

import (
	"github.com/jhoicas/insumos-ledger/internal/application/dto"
	"github.com/jhoicas/insumos-ledger/internal/application/ledger"
	"github.com/jhoicas/insumos-ledger/internal/domain"
	"github.com/jhoicas/insumos-ledger/internal/domain/entity"
	"github.com/jhoicas/insumos-ledger/internal/domain/inventory"
)

func toItems(in []dto.ItemQuantity) []ledger.ItemQuantity {
	out := make([]ledger.ItemQuantity, 0, len(in))
	for _, it := range in {
		out = append(out, ledger.ItemQuantity{ItemID: it.ItemID, Quantity: it.Quantity})
	}
	return out
}

func toDebits(in []inventory.LotDebit) []dto.LotDebit {
	out := make([]dto.LotDebit, 0, len(in))
	for _, d := range in {
		out = append(out, dto.LotDebit{LotID: d.LotID, Amount: d.Amount})
	}
	return out
}

func toLocationResponse(w *entity.Warehouse) dto.LocationResponse {
	return dto.LocationResponse{
		Location:      w.Key(),
		Kind:          w.Location.Kind,
		HospitalID:    w.HospitalID,
		Name:          w.Name,
		Active:        w.Active,
		CreatedAt:     w.CreatedAt,
		DeactivatedAt: w.DeactivatedAt,
	}
}

func toStockResponse(s *entity.ConsolidatedStock) dto.StockResponse {
	return dto.StockResponse{
		Location:         s.Location,
		ItemID:           s.ItemID,
		QuantityTotal:    s.QuantityTotal,
		MinimumThreshold: s.MinimumThreshold,
		Frozen:           s.Frozen,
		UpdatedAt:        s.UpdatedAt,
	}
}

func toLotResponse(l *entity.Lot) dto.LotResponse {
	return dto.LotResponse{
		ID:                l.ID,
		Location:          l.Location,
		ItemID:            l.ItemID,
		QuantityRemaining: l.QuantityRemaining,
		EnteredAt:         l.EnteredAt,
		ExpiresAt:         l.ExpiresAt,
		OriginNote:        l.OriginNote,
		OriginRef:         l.OriginRef,
	}
}

func toMovementResponse(m *entity.MovementRecord) dto.MovementResponse {
	return dto.MovementResponse{
		Seq:                m.Seq,
		ID:                 m.ID,
		TransactionID:      m.TransactionID,
		Timestamp:          m.Timestamp,
		Location:           m.Location,
		CounterLocation:    m.CounterLocation,
		ItemID:             m.ItemID,
		LotID:              m.LotID,
		QuantityDelta:      m.QuantityDelta,
		Kind:               m.Kind,
		ActorID:            m.ActorID,
		ReasonText:         m.ReasonText,
		RelatedProcedureID: m.RelatedProcedureID,
	}
}

func toAlertResponse(a *entity.Alert) dto.AlertResponse {
	return dto.AlertResponse{
		ID:                a.ID,
		Location:          a.Location,
		ItemID:            a.ItemID,
		QuantityAtTrigger: a.QuantityAtTrigger,
		MinimumThreshold:  a.MinimumThreshold,
		Priority:          a.Priority,
		State:             a.State,
		CreatedAt:         a.CreatedAt,
		UpdatedAt:         a.UpdatedAt,
		ResolvedAt:        a.ResolvedAt,
	}
}

func toStockMovementResponse(r *ledger.StockMovementResult) dto.StockMovementResponse {
	return dto.StockMovementResponse{
		TransactionID: r.TransactionID,
		Location:      r.Location,
		ItemID:        r.ItemID,
		Delta:         r.Delta,
		LotIDs:        r.LotIDs,
		QuantityTotal: r.QuantityTotal,
	}
}

func toTransferResponse(r *ledger.TransferResult) dto.TransferResponse {
	out := dto.TransferResponse{
		TransactionID: r.TransactionID,
		From:          r.From,
		To:            r.To,
		Mode:          r.Mode,
		Lines:         make([]dto.TransferLineResponse, 0, len(r.Lines)),
	}
	for _, l := range r.Lines {
		out.Lines = append(out.Lines, dto.TransferLineResponse{
			ItemID:           l.ItemID,
			Requested:        l.Requested,
			Moved:            l.Moved,
			Skipped:          l.Skipped,
			SourceDebits:     toDebits(l.SourceDebits),
			DestinationLotID: l.DestinationLotID,
		})
	}
	return out
}

func toConsumptionResponse(r *ledger.ConsumptionResult) dto.ConsumptionResponse {
	out := dto.ConsumptionResponse{
		TransactionID: r.TransactionID,
		ProcedureID:   r.ProcedureID,
		Warehouse:     r.Warehouse,
		Lines:         make([]dto.ConsumptionLineResponse, 0, len(r.Lines)),
	}
	for _, l := range r.Lines {
		out.Lines = append(out.Lines, dto.ConsumptionLineResponse{ItemID: l.ItemID, Quantity: l.Quantity, Debits: toDebits(l.Debits)})
	}
	return out
}

func toRefundResponse(r *ledger.RefundResult) dto.RefundResponse {
	out := dto.RefundResponse{
		TransactionID: r.TransactionID,
		ProcedureID:   r.ProcedureID,
		Location:      r.Location,
		Lines:         make([]dto.RefundLineResponse, 0, len(r.Lines)),
	}
	for _, l := range r.Lines {
		out.Lines = append(out.Lines, dto.RefundLineResponse{ItemID: l.ItemID, Quantity: l.Quantity, LotID: l.LotID})
	}
	return out
}

func toDecommissionResponse(r *ledger.DecommissionResult) dto.DecommissionResponse {
	out := dto.DecommissionResponse{
		TransactionID: r.TransactionID,
		WarehouseID:   r.WarehouseID,
		Policy:        r.Policy,
		ReturnedTo:    r.ReturnedTo,
		Lines:         make([]dto.ItemQuantity, 0, len(r.Lines)),
	}
	for _, l := range r.Lines {
		out.Lines = append(out.Lines, dto.ItemQuantity{ItemID: l.ItemID, Quantity: l.Quantity})
	}
	return out
}

func toReconcileResponse(r *ledger.ReconcileReport) dto.ReconcileResponse {
	out := dto.ReconcileResponse{
		Checked:    r.Checked,
		Frozen:     r.Frozen,
		Violations: make([]dto.ViolationResponse, 0, len(r.Violations)),
	}
	for _, v := range r.Violations {
		out.Violations = append(out.Violations, toViolationResponse(v))
	}
	return out
}

func toViolationResponse(v *domain.IntegrityViolationError) dto.ViolationResponse {
	return dto.ViolationResponse{Location: v.Location, ItemID: v.ItemID, Stock: v.Stock, LotSum: v.LotSum, LedgerSum: v.LedgerSum}
}
