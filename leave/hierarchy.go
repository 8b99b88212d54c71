/*
hierarchy.go - Reporting-chain resolution

PURPOSE:
  Walks the employee -> manager reportsTo chain to produce the ordered
  approver list used by escalation, nearest manager first.

CYCLE GUARD:
  reportsTo edges are plain ids with nothing preventing a loop
  (A reports to B reports to A). The walk keeps a seen set and a hard
  depth bound; either tripping yields HierarchyCycleError instead of
  spinning forever.

FALLBACK:
  When a request escalates past the end of the chain, the next
  approver set is "all users with role Admin". That lookup lives on
  UserDirectory.FindAdmins; the resolver only produces the chain.
*/
package leave

import "context"

// MaxChainDepth bounds the reportsTo walk. Real org charts are a
// handful of levels deep; anything past this is a data defect.
const MaxChainDepth = 20

type HierarchyResolver struct {
	Directory UserDirectory
}

func NewHierarchyResolver(dir UserDirectory) *HierarchyResolver {
	return &HierarchyResolver{Directory: dir}
}

// ManagerChain returns the ordered managers above employeeID, nearest
// first. The chain ends at the first employee with no reportsTo, or at
// a dangling manager reference. A revisited node or an over-deep chain
// returns HierarchyCycleError.
func (r *HierarchyResolver) ManagerChain(ctx context.Context, employeeID UserID) ([]Approver, error) {
	var chain []Approver
	seen := map[UserID]bool{employeeID: true}

	current, err := r.Directory.GetByID(ctx, employeeID)
	if err != nil {
		return nil, internalf(err, "load employee %s", employeeID)
	}
	if current == nil {
		return nil, &NotFoundError{Kind: "employee", ID: string(employeeID)}
	}

	for depth := 0; current.ReportsTo != nil; depth++ {
		if depth >= MaxChainDepth {
			return nil, &HierarchyCycleError{EmployeeID: employeeID, Depth: depth}
		}

		managerID := *current.ReportsTo
		if seen[managerID] {
			return nil, &HierarchyCycleError{EmployeeID: employeeID, Depth: depth}
		}
		seen[managerID] = true

		manager, err := r.Directory.GetByID(ctx, managerID)
		if err != nil {
			return nil, internalf(err, "load manager %s", managerID)
		}
		if manager == nil {
			// Dangling reference: treat as end of chain.
			break
		}

		chain = append(chain, Approver{
			ID:    manager.ID,
			Name:  manager.Name,
			Email: manager.Email,
			Role:  manager.Role,
		})
		current = manager
	}

	return chain, nil
}
