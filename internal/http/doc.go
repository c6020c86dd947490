// Package http exposes the room booking services over a gin router.
//
// Every route requires a bearer JWT whose claims carry the caller identity
// (sub, name, role). Routes:
//   - GET /schedule/:date: decorated day grid. Query ?rooms=301,302 limits the
//     rows. The response also lists the cells the caller's own pending
//     requests already claim.
//   - PUT /schedule/:date/:room/:slot, DELETE /schedule/:date/:room/:slot:
//     administrator edits of a single confirmed cell.
//   - GET /requests, POST /requests, GET /requests/:id: submission and listing.
//     Non-administrators only see their own requests.
//   - POST /requests/:id/approve, POST /requests/:id/reject ({"reason"}),
//     POST /requests/:id/revert/prepare, POST /requests/:id/revert
//     ({"confirmation"}): administrator review.
//   - GET /slots/:category: the ordered slot catalog of a category.
//   - GET /freshness: polling intervals clients should use.
//
// Request/response DTOs live alongside their respective handlers.
package http
