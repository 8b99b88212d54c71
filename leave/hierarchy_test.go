package leave_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nimbus-hr/leave-engine/leave"
)

// =============================================================================
// MANAGER CHAIN RESOLUTION
// =============================================================================

func TestManagerChain_NearestFirst(t *testing.T) {
	// GIVEN: emp -> mgr -> dir, dir has no manager
	// WHEN: Resolving emp's chain
	// THEN: [mgr, dir], nearest manager first

	fx := newFixture(t)
	fx.seedChain(t)

	chain, err := fx.Resolver.ManagerChain(context.Background(), "emp")
	require.NoError(t, err)

	require.Len(t, chain, 2)
	assert.Equal(t, leave.UserID("mgr"), chain[0].ID)
	assert.Equal(t, leave.UserID("dir"), chain[1].ID)
	assert.Equal(t, "Morgan Manager", chain[0].Name)
}

func TestManagerChain_RootHasEmptyChain(t *testing.T) {
	fx := newFixture(t)
	fx.seedChain(t)

	chain, err := fx.Resolver.ManagerChain(context.Background(), "dir")
	require.NoError(t, err)
	assert.Empty(t, chain)
}

func TestManagerChain_UnknownEmployee(t *testing.T) {
	fx := newFixture(t)

	_, err := fx.Resolver.ManagerChain(context.Background(), "ghost")
	require.Error(t, err)
	assert.True(t, leave.IsNotFound(err))
}

func TestManagerChain_DanglingManagerReference(t *testing.T) {
	// GIVEN: emp reports to a manager id that no longer exists
	// WHEN: Resolving the chain
	// THEN: The chain stops at the dangling link without error

	fx := newFixture(t)
	fx.addEmployee(t, leave.Employee{
		ID: "orphan", Name: "Orphan", Email: "orphan@example.com",
		ReportsTo: userID("gone"),
	})

	chain, err := fx.Resolver.ManagerChain(context.Background(), "orphan")
	require.NoError(t, err)
	assert.Empty(t, chain)
}

func TestManagerChain_CycleDetected(t *testing.T) {
	// GIVEN: a -> b -> a
	// WHEN: Resolving a's chain
	// THEN: HierarchyCycleError, not an infinite loop

	fx := newFixture(t)
	fx.addEmployee(t, leave.Employee{
		ID: "a", Name: "A", Email: "a@example.com", ReportsTo: userID("b"),
	})
	fx.addEmployee(t, leave.Employee{
		ID: "b", Name: "B", Email: "b@example.com", ReportsTo: userID("a"),
	})

	_, err := fx.Resolver.ManagerChain(context.Background(), "a")
	require.Error(t, err)

	var cycleErr *leave.HierarchyCycleError
	assert.ErrorAs(t, err, &cycleErr)
	assert.ErrorIs(t, err, leave.ErrHierarchyCycle)
}

func TestManagerChain_SelfManagerIsACycle(t *testing.T) {
	fx := newFixture(t)
	fx.addEmployee(t, leave.Employee{
		ID: "self", Name: "Self", Email: "self@example.com", ReportsTo: userID("self"),
	})

	_, err := fx.Resolver.ManagerChain(context.Background(), "self")
	assert.ErrorIs(t, err, leave.ErrHierarchyCycle)
}

func TestManagerChain_DepthGuard(t *testing.T) {
	// GIVEN: A reporting chain longer than the depth limit
	// WHEN: Resolving from the bottom
	// THEN: HierarchyCycleError once the guard trips

	fx := newFixture(t)
	for i := 0; i <= leave.MaxChainDepth+1; i++ {
		emp := leave.Employee{
			ID:    leave.UserID(fmt.Sprintf("n%d", i)),
			Name:  fmt.Sprintf("Node %d", i),
			Email: fmt.Sprintf("n%d@example.com", i),
		}
		if i > 0 {
			emp.ReportsTo = userID(fmt.Sprintf("n%d", i-1))
		}
		fx.addEmployee(t, emp)
	}

	_, err := fx.Resolver.ManagerChain(context.Background(), leave.UserID(fmt.Sprintf("n%d", leave.MaxChainDepth+1)))
	assert.ErrorIs(t, err, leave.ErrHierarchyCycle)
}
