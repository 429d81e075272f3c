package connector

import (
	"context"

	"github.com/tkrehbiel/fedlace/connector/activity"
	"github.com/tkrehbiel/fedlace/connector/api"
	"github.com/tkrehbiel/fedlace/connector/telemetry"
)

// Page fetches one page of a timeline of the actor, the account's own
// actor when empty. Younger pages start at youngest, older ones at oldest.
// Items come oldest to newest.
func (c *Connection) Page(ctx context.Context, routine api.Routine, youngest, oldest activity.Position, limit int, actor activity.Actor, dir api.Direction) (api.Page, error) {
	pos := oldest
	if dir == api.Younger {
		pos = youngest
	}
	if actor.IsEmpty() || actor.Same(c.Actor) {
		actor = c.self(ctx)
	}
	uri, conn, err := c.resolve(ctx, routine, pos, actor)
	if err != nil {
		return api.Page{}, err
	}
	limit = conn.protocol.PageLimit(routine, limit)
	req, err := conn.protocol.PageRequest(routine, uri, pos, limit, dir)
	if err != nil {
		return api.Page{}, &ConnectionError{Status: StatusBadRequest, Message: routine.String(), URI: uri, Err: err}
	}
	res, err := conn.execute(ctx, req)
	if err != nil {
		return api.Page{}, err
	}
	if !res.HasJSON() {
		return api.Page{}, newError(StatusEmptyResponse, uri, "no json in %s page", routine)
	}
	page, err := conn.protocol.ParsePage(routine, res)
	if err != nil {
		telemetry.Log("malformed %s page: %s", routine, telemetry.Fragment(res.Body))
		return api.Page{}, &ConnectionError{Status: StatusMalformedWireData, URI: uri, Err: err}
	}
	telemetry.Trace("%s page of %d items from [%s]", routine, len(page.Items), uri)
	return page, nil
}

// Timeline fetches up to maxPages pages in one direction, following the
// cursors of each page. Cancelling ctx stops between pages and returns the
// pages fetched so far without error.
func (c *Connection) Timeline(ctx context.Context, routine api.Routine, actor activity.Actor, dir api.Direction, limit, maxPages int) ([]api.Page, error) {
	var pages []api.Page
	youngest, oldest := activity.EmptyPosition, activity.EmptyPosition
	for maxPages <= 0 || len(pages) < maxPages {
		if ctx.Err() != nil {
			telemetry.Log("%s stopped after %d pages: %s", routine, len(pages), ctx.Err())
			return pages, nil
		}
		page, err := c.Page(ctx, routine, youngest, oldest, limit, actor, dir)
		if err != nil {
			if ctx.Err() != nil {
				telemetry.Log("%s stopped after %d pages: %s", routine, len(pages), ctx.Err())
				return pages, nil
			}
			return pages, err
		}
		pages = append(pages, page)
		if page.IsEmpty() {
			break
		}
		if dir == api.Younger {
			if page.Prev.IsEmpty() || page.Prev == youngest {
				break
			}
			youngest = page.Prev
		} else {
			if page.Next.IsEmpty() || page.Next == oldest {
				break
			}
			oldest = page.Next
		}
	}
	return pages, nil
}
