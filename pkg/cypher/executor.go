package cypher

import (
	"context"
	"time"

	"github.com/wyrmgraph/wyrm/pkg/storage"
	"github.com/wyrmgraph/wyrm/pkg/txn"
)

// Counters tallies the mutations attributed to one query execution
// (spec.md §6), zero-initialized per call to Execute.
type Counters struct {
	NodesCreated          int `json:"nodesCreated"`
	NodesDeleted          int `json:"nodesDeleted"`
	RelationshipsCreated  int `json:"relationshipsCreated"`
	RelationshipsDeleted  int `json:"relationshipsDeleted"`
	PropertiesSet         int `json:"propertiesSet"`
	LabelsAdded           int `json:"labelsAdded"`
	LabelsRemoved         int `json:"labelsRemoved"`
}

// Result is Execute's successful return value.
type Result struct {
	Records  []map[string]interface{}
	Counters Counters
}

// Executor interprets a parsed Query against a storage.Engine, optionally
// scoped to one transaction's pending set. Named and shaped after the
// teacher's StorageExecutor (nornicdb's pkg/cypher/executor.go), but driven
// by the AST from parser.go rather than string/regex routing.
type Executor struct {
	engine storage.Engine
	ids    *storage.IDAllocator
}

// NewExecutor constructs an Executor over engine, allocating ids from ids.
func NewExecutor(engine storage.Engine, ids *storage.IDAllocator) *Executor {
	return &Executor{engine: engine, ids: ids}
}

// Execute parses and interprets queryText (spec.md §4.3's public operation).
// tx is nil for an unscoped (auto-committing) execution; otherwise all
// writes go into tx's pending set instead of directly to storage, and reads
// see the committed store overlaid by that pending set.
func (ex *Executor) Execute(ctx context.Context, queryText string, params map[string]interface{}, tx *txn.Transaction) (*Result, error) {
	if params == nil {
		params = map[string]interface{}{}
	}

	query, err := Parse(queryText)
	if err != nil {
		if perr, ok := err.(*ParserError); ok {
			return nil, newExecError(KindSyntaxError, "%s", perr.Msg)
		}
		return nil, newExecError(KindSyntaxError, "%s", err.Error())
	}

	for _, clause := range query.Clauses {
		if _, ok := clause.(*MergeClause); ok {
			return nil, notImplementedErr("MERGE is not implemented")
		}
		if rc, ok := clause.(*ReturnClause); ok {
			for _, item := range rc.Items {
				if containsAggregate(item.Expr) {
					return nil, notImplementedErr("aggregate functions are not implemented")
				}
			}
		}
	}

	view := &storageView{ctx: ctx, engine: ex.engine, tx: tx}
	declared := map[string]bool{}
	rows := []Row{{}}
	counters := &Counters{}
	var records []map[string]interface{}

	for _, clause := range query.Clauses {
		switch c := clause.(type) {
		case *MatchClause:
			rows, err = ex.executeMatch(c, declared, rows, params, view)
			if err != nil {
				return nil, err
			}
		case *CreateClause:
			rows, err = ex.executeCreate(c, declared, rows, params, counters, tx)
			if err != nil {
				return nil, err
			}
		case *ReturnClause:
			records, err = ex.executeReturn(c, declared, rows, params)
			if err != nil {
				return nil, err
			}
		default:
			return nil, semanticErr("unsupported clause kind")
		}
	}

	return &Result{Records: records, Counters: *counters}, nil
}

// --- CREATE ---

func declarePatternVars(p Pattern, declared map[string]bool) {
	for _, elem := range p.Elements {
		if elem.Variable != "" {
			declared[elem.Variable] = true
		}
	}
	for _, rel := range p.Rels {
		if rel.Variable != "" {
			declared[rel.Variable] = true
		}
	}
}

func evalProperties(expr Expression, row Row, params map[string]interface{}) (map[string]interface{}, error) {
	if expr == nil {
		return map[string]interface{}{}, nil
	}
	v, err := evalExpr(row, params, expr)
	if err != nil {
		return nil, err
	}
	m, ok := v.(map[string]interface{})
	if !ok {
		return nil, semanticErr("expected a map literal for properties")
	}
	return m, nil
}

func (ex *Executor) executeCreate(clause *CreateClause, declared map[string]bool, rows []Row, params map[string]interface{}, counters *Counters, tx *txn.Transaction) ([]Row, error) {
	declarePatternVars(clause.Pattern, declared)

	newRows := make([]Row, 0, len(rows))
	for _, r := range rows {
		row := r.clone()
		var nodes []*storage.Node // per-element resolved node, parallel to clause.Pattern.Elements

		for i, elem := range clause.Pattern.Elements {
			var n *storage.Node
			if elem.Variable != "" {
				if existing, ok := row[elem.Variable]; ok && existing != nil {
					bound, isN := isNode(existing)
					if !isN {
						return nil, semanticErr("variable `%s` is not a node", elem.Variable)
					}
					n = bound
				}
			}
			if n == nil {
				props, err := evalProperties(elem.Properties, row, params)
				if err != nil {
					return nil, err
				}
				now := time.Now().UTC()
				id := ex.ids.NextNodeID()
				n = &storage.Node{ID: id, Labels: append([]string{}, elem.Labels...), Properties: props, CreatedAt: now, UpdatedAt: now}
				if err := ex.persistNode(n, tx); err != nil {
					return nil, err
				}
				counters.NodesCreated++
				counters.LabelsAdded += len(n.Labels)
				counters.PropertiesSet += len(props)
				if elem.Variable != "" {
					row[elem.Variable] = n
				}
			}
			nodes = append(nodes, n)

			if i > 0 {
				rel := clause.Pattern.Rels[i-1]
				left, right := nodes[i-1], nodes[i]
				startNode, endNode := left, right
				if rel.Direction == DirLeft {
					startNode, endNode = right, left
				}
				relType := "RELATED_TO"
				if len(rel.Types) > 0 {
					relType = rel.Types[0]
				}
				relProps, err := evalProperties(rel.Properties, row, params)
				if err != nil {
					return nil, err
				}
				relID := ex.ids.NextRelationshipID()
				relObj := &storage.Relationship{
					ID: relID, Type: relType, StartNodeID: startNode.ID, EndNodeID: endNode.ID,
					Properties: relProps, CreatedAt: time.Now().UTC(),
				}
				if err := ex.persistRelationship(relObj, tx); err != nil {
					return nil, err
				}
				counters.RelationshipsCreated++
				counters.PropertiesSet += len(relProps)
				if rel.Variable != "" {
					row[rel.Variable] = relObj
				}
			}
		}
		newRows = append(newRows, row)
	}
	return newRows, nil
}

func (ex *Executor) persistNode(n *storage.Node, tx *txn.Transaction) error {
	if tx != nil {
		tx.PendingNodes[n.ID] = n
		tx.CreatedNodeIDs[n.ID] = true
		return nil
	}
	return ex.engine.CreateNodeWithID(context.Background(), n.ID, n.Labels, n.Properties)
}

func (ex *Executor) persistRelationship(r *storage.Relationship, tx *txn.Transaction) error {
	if tx != nil {
		tx.PendingRelationships[r.ID] = r
		tx.CreatedRelationshipIDs[r.ID] = true
		return nil
	}
	return ex.engine.CreateRelationshipWithID(context.Background(), r.ID, r.Type, r.StartNodeID, r.EndNodeID, r.Properties)
}

// --- MATCH / OPTIONAL MATCH ---

func (ex *Executor) executeMatch(clause *MatchClause, declared map[string]bool, rows []Row, params map[string]interface{}, view *storageView) ([]Row, error) {
	declarePatternVars(clause.Pattern, declared)

	newRows := make([]Row, 0, len(rows))
	for _, r := range rows {
		matches, err := ex.matchPattern(r, clause.Pattern, view, params)
		if err != nil {
			return nil, err
		}
		if clause.Optional && len(matches) == 0 {
			// Only nil-bind variables this clause introduces; a variable
			// already bound by an earlier clause (the anchor this OPTIONAL
			// MATCH failed to extend from) keeps its existing value.
			nilRow := Row{}
			for _, elem := range clause.Pattern.Elements {
				if elem.Variable != "" {
					if _, bound := r[elem.Variable]; !bound {
						nilRow[elem.Variable] = nil
					}
				}
			}
			for _, rel := range clause.Pattern.Rels {
				if rel.Variable != "" {
					if _, bound := r[rel.Variable]; !bound {
						nilRow[rel.Variable] = nil
					}
				}
			}
			matches = []Row{nilRow}
		}
		for _, m := range matches {
			merged := r.clone()
			for k, v := range m {
				merged[k] = v
			}
			if clause.Where != nil {
				val, err := evalExpr(merged, params, clause.Where)
				if err != nil {
					return nil, err
				}
				if !truthy(val) {
					continue
				}
			}
			newRows = append(newRows, merged)
		}
	}
	return newRows, nil
}

type relNodeCombo struct {
	rel  *storage.Relationship
	node *storage.Node
}

// prevNodeKey is the reserved partial-row key under which matchPattern keeps
// the node the walk reached last, so anonymous node elements still anchor
// the next hop. It is not a valid identifier and is removed before return.
const prevNodeKey = "\x00prev"

// matchPattern enumerates every way clause.Pattern can bind against view,
// given the bindings already present in existingRow (so a reused variable
// from an earlier clause anchors the chain instead of re-enumerating it).
func (ex *Executor) matchPattern(existingRow Row, pattern Pattern, view *storageView, params map[string]interface{}) ([]Row, error) {
	partials := []Row{{}}

	for i, elem := range pattern.Elements {
		var newPartials []Row
		for _, p := range partials {
			merged := existingRow.clone()
			for k, v := range p {
				merged[k] = v
			}

			if i == 0 {
				candidates, err := resolveNodeCandidates(merged, elem, view, params)
				if err != nil {
					return nil, err
				}
				for _, n := range candidates {
					np := p.clone()
					if elem.Variable != "" {
						np[elem.Variable] = n
					}
					np[prevNodeKey] = n
					newPartials = append(newPartials, np)
				}
				continue
			}

			rel := pattern.Rels[i-1]
			leftNode, ok := isNode(p[prevNodeKey])
			if !ok {
				continue
			}
			combos, err := ex.expandRelationship(leftNode, rel, elem, view, merged, params)
			if err != nil {
				return nil, err
			}
			for _, c := range combos {
				np := p.clone()
				if rel.Variable != "" {
					np[rel.Variable] = c.rel
				}
				if elem.Variable != "" {
					np[elem.Variable] = c.node
				}
				np[prevNodeKey] = c.node
				newPartials = append(newPartials, np)
			}
		}
		partials = newPartials
		if len(partials) == 0 {
			break
		}
	}
	for _, p := range partials {
		delete(p, prevNodeKey)
	}
	return partials, nil
}

func resolveNodeCandidates(row Row, elem PatternElement, view *storageView, params map[string]interface{}) ([]*storage.Node, error) {
	if elem.Variable != "" {
		if v, ok := row[elem.Variable]; ok {
			if v == nil {
				return nil, nil
			}
			n, isN := isNode(v)
			if !isN {
				return nil, semanticErr("variable `%s` is not a node", elem.Variable)
			}
			if !nodeMatchesElem(n, elem, row, params) {
				return nil, nil
			}
			return []*storage.Node{n}, nil
		}
	}

	var candidates []*storage.Node
	var err error
	if len(elem.Labels) > 0 {
		candidates, err = view.nodesByLabel(elem.Labels[0])
	} else {
		candidates, err = view.allNodes()
	}
	if err != nil {
		return nil, err
	}
	out := make([]*storage.Node, 0, len(candidates))
	for _, n := range candidates {
		if nodeMatchesElem(n, elem, row, params) {
			out = append(out, n)
		}
	}
	return out, nil
}

func nodeMatchesElem(n *storage.Node, elem PatternElement, row Row, params map[string]interface{}) bool {
	for _, l := range elem.Labels {
		if !hasLabel(n.Labels, l) {
			return false
		}
	}
	if elem.Properties != nil {
		props, err := evalProperties(elem.Properties, row, params)
		if err != nil {
			return false
		}
		for k, v := range props {
			if !valuesEqual(n.Properties[k], v) {
				return false
			}
		}
	}
	return true
}

// expandRelationship implements spec.md §4.3's direction semantics: -[...]->
// requires rel.start=A,rel.end=B; <-[...]- requires rel.start=B,rel.end=A;
// -[...]- (undirected) requires either.
func (ex *Executor) expandRelationship(left *storage.Node, rel RelationshipPattern, elem PatternElement, view *storageView, row Row, params map[string]interface{}) ([]relNodeCombo, error) {
	candidates, err := view.relationshipsTouching(left.ID, rel.Types)
	if err != nil {
		return nil, err
	}

	var out []relNodeCombo
	for _, r := range candidates {
		var otherID uint64
		matched := false
		switch rel.Direction {
		case DirRight:
			if r.StartNodeID == left.ID {
				otherID, matched = r.EndNodeID, true
			}
		case DirLeft:
			if r.EndNodeID == left.ID {
				otherID, matched = r.StartNodeID, true
			}
		case DirEither:
			if r.StartNodeID == left.ID {
				otherID, matched = r.EndNodeID, true
			} else if r.EndNodeID == left.ID {
				otherID, matched = r.StartNodeID, true
			}
		}
		if !matched {
			continue
		}
		if rel.Properties != nil {
			props, err := evalProperties(rel.Properties, row, params)
			if err != nil {
				return nil, err
			}
			mismatch := false
			for k, v := range props {
				if !valuesEqual(r.Properties[k], v) {
					mismatch = true
					break
				}
			}
			if mismatch {
				continue
			}
		}
		otherNode, found := view.getNode(otherID)
		if !found {
			continue
		}
		if elem.Variable != "" {
			if bound, ok := row[elem.Variable]; ok && bound != nil {
				bn, _ := isNode(bound)
				if bn == nil || bn.ID != otherNode.ID {
					continue
				}
			}
		}
		if !nodeMatchesElem(otherNode, elem, row, params) {
			continue
		}
		out = append(out, relNodeCombo{rel: r, node: otherNode})
	}
	return out, nil
}

// --- RETURN ---

func validateVars(expr Expression, declared map[string]bool) error {
	switch e := expr.(type) {
	case *Variable:
		if !declared[e.Name] {
			return semanticErr("Variable `%s` not defined", e.Name)
		}
	case *PropertyAccess:
		return validateVars(e.Base, declared)
	case *BinaryOp:
		if err := validateVars(e.Left, declared); err != nil {
			return err
		}
		return validateVars(e.Right, declared)
	case *UnaryOp:
		return validateVars(e.Operand, declared)
	case *FunctionCall:
		for _, arg := range e.Args {
			if err := validateVars(arg, declared); err != nil {
				return err
			}
		}
	case *MapLiteral:
		for _, k := range e.Keys {
			if err := validateVars(e.Entries[k], declared); err != nil {
				return err
			}
		}
	case *ListLiteral:
		for _, item := range e.Items {
			if err := validateVars(item, declared); err != nil {
				return err
			}
		}
	}
	return nil
}

func (ex *Executor) executeReturn(clause *ReturnClause, declared map[string]bool, rows []Row, params map[string]interface{}) ([]map[string]interface{}, error) {
	for _, item := range clause.Items {
		if err := validateVars(item.Expr, declared); err != nil {
			return nil, err
		}
	}

	records := make([]map[string]interface{}, 0, len(rows))
	for _, r := range rows {
		rec := make(map[string]interface{}, len(clause.Items))
		for _, item := range clause.Items {
			val, err := evalExpr(r, params, item.Expr)
			if err != nil {
				return nil, err
			}
			key := item.Alias
			if key == "" {
				key = canonicalKey(item.Expr)
			}
			rec[key] = toWireValue(val)
		}
		records = append(records, rec)
	}
	return records, nil
}

func toWireValue(v interface{}) interface{} {
	if n, ok := isNode(v); ok {
		labels := make([]interface{}, len(n.Labels))
		for i, l := range n.Labels {
			labels[i] = l
		}
		return map[string]interface{}{"id": int64(n.ID), "labels": labels, "properties": n.Properties}
	}
	if r, ok := isRelationship(v); ok {
		return map[string]interface{}{
			"id": int64(r.ID), "type": r.Type,
			"startNodeId": int64(r.StartNodeID), "endNodeId": int64(r.EndNodeID),
			"properties": r.Properties,
		}
	}
	return v
}
