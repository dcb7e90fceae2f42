// Package hierarchy assembles the nested organization view from flat fleet records.
//
// BuildOrgTree has three outcomes:
//   - Found: a complete *OrgTree
//   - NotFound: nil tree, nil error
//   - Failed: an error wrapping ErrStoreFailure
//
// Assembly is all-or-nothing. A failure in any lookup aborts the call and no
// partial tree is returned. The three device lookups per trailer run
// concurrently; results land in load order regardless of completion order.
package hierarchy
