package pgx

import (
	"context"
	"errors"
	"fmt"

	"github.com/OFFIS-RIT/stakegraph/pkg/common"
	"github.com/OFFIS-RIT/stakegraph/pkg/store"

	pgxv5 "github.com/jackc/pgx/v5"
)

func (s *Source) accountExists(ctx context.Context, id string) error {
	var found string
	err := s.conn.QueryRow(ctx, getAccountSQL, id).Scan(&found)
	if err != nil {
		if errors.Is(err, pgxv5.ErrNoRows) {
			return fmt.Errorf("%w: account %s", store.ErrNotFound, id)
		}
		return fmt.Errorf("failed to get account %s: %w", id, err)
	}
	return nil
}

func (s *Source) TransferSubgraph(ctx context.Context, seed string, hops, limit int) (*common.TransferGraph, error) {
	if err := s.accountExists(ctx, seed); err != nil {
		return nil, err
	}

	rows, err := s.conn.Query(ctx, transferSubgraphSQL, seed, store.ClampHops(hops))
	if err != nil {
		return nil, fmt.Errorf("failed to get transfers around %s: %w", seed, err)
	}
	transfers, err := pgxv5.CollectRows(rows, func(row pgxv5.CollectableRow) (common.Transfer, error) {
		var t common.Transfer
		err := row.Scan(&t.TxID, &t.Source, &t.Target, &t.Amount)
		return t, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan transfers: %w", err)
	}

	return store.BuildTransferGraph(seed, transfers, limit), nil
}

func (s *Source) TransferDegree(ctx context.Context, accountID string) (*common.Degree, error) {
	if err := s.accountExists(ctx, accountID); err != nil {
		return nil, err
	}

	d := &common.Degree{}
	if err := s.conn.QueryRow(ctx, transferDegreeSQL, accountID).Scan(&d.In, &d.Out); err != nil {
		return nil, fmt.Errorf("failed to count transfers of %s: %w", accountID, err)
	}
	d.Degree = d.In + d.Out
	return d, nil
}
