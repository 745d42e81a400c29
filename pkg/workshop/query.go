package workshop

import (
	"context"
	"fmt"
)

// EnumeratePageSize is the number of ids the platform returns per page.
const EnumeratePageSize = 50

// ItemDetails fetches the metadata of one item.
func (s *Session) ItemDetails(ctx context.Context, item ItemID) (ItemDetails, error) {
	const op = "query_item_details"

	q := s.platform.CreateQueryItemDetails([]ItemID{item})
	if q == InvalidQueryHandle {
		return ItemDetails{}, rejected(op, fmt.Errorf("query for item %s not created", item))
	}
	defer s.platform.ReleaseQuery(q)

	return Await(ctx, s.corr, op, func() CallHandle {
		return s.platform.SendQuery(q)
	}, func(comp Completion) (ItemDetails, error) {
		qc, ok := comp.Payload.(QueryCompleted)
		if !ok {
			return ItemDetails{}, unexpectedPayload(op, comp)
		}
		if qc.Results == 0 {
			return ItemDetails{}, &Error{Kind: KindOperationFailed, Op: op, Item: item, Code: ResultFileNotFound, Msg: "query returned no results"}
		}
		d, ok := s.platform.QueryResult(q, 0)
		if !ok {
			return ItemDetails{}, &Error{Kind: KindOperationFailed, Op: op, Item: item, Msg: "query result unavailable"}
		}
		if d.Result != ResultOK {
			return d, &Error{Kind: KindOperationFailed, Op: op, Item: item, Code: d.Result, Msg: "item lookup failed with result " + d.Result.String()}
		}
		s.logger.Debug("item details", "item", item, "title", d.Title, "tags", d.Tags)
		return d, nil
	})
}

// ListUserItems enumerates every item published by the current user. Pages
// are fetched until one comes back short or repeats an id already seen.
func (s *Session) ListUserItems(ctx context.Context) ([]ItemID, error) {
	const op = "enumerate_user_items"

	var items []ItemID
	seen := make(map[ItemID]struct{})
	for {
		start := len(items)
		page, err := Await(ctx, s.corr, op, func() CallHandle {
			return s.platform.EnumerateUserSharedWorkshopFiles(start)
		}, func(comp Completion) (EnumerateResult, error) {
			er, ok := comp.Payload.(EnumerateResult)
			if !ok {
				return er, unexpectedPayload(op, comp)
			}
			return er, nil
		})
		if err != nil {
			return items, err
		}

		repeat := false
		for _, id := range page.Items {
			if _, dup := seen[id]; dup {
				repeat = true
				continue
			}
			if id == 0 {
				continue
			}
			seen[id] = struct{}{}
			items = append(items, id)
		}
		if repeat || len(page.Items) < EnumeratePageSize {
			return items, nil
		}
	}
}

// DeleteItem removes a published item.
func (s *Session) DeleteItem(ctx context.Context, item ItemID) error {
	const op = "delete_published_file"

	_, err := Await(ctx, s.corr, op, func() CallHandle {
		return s.platform.DeletePublishedFile(item)
	}, func(comp Completion) (DeletePublishedFileResult, error) {
		dr, _ := comp.Payload.(DeletePublishedFileResult)
		return dr, nil
	})
	if err != nil {
		return err
	}
	s.logger.Info("published file deleted", "item", item)
	return nil
}
