package behavior

import (
	"strings"
	"testing"

	"github.com/verigraph/verigraph/internal/ir"
	"github.com/verigraph/verigraph/internal/vast"
)

func parseStmt(t *testing.T, text string) *vast.Node {
	t.Helper()
	doc, err := vast.Decode(strings.NewReader(text))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	return &doc.Root
}

// extractBlock runs extraction over a single sequential block built from the
// given statements and returns it.
func extractBlock(t *testing.T, stmts ...*vast.Node) (*ir.Block, *ir.Diagnostics) {
	t.Helper()
	blk := &ir.Block{Kind: ir.BlockAlways, Sequential: true, Trigger: "posedge clk", Body: stmts}
	mod := &ir.Module{Name: "m", Blocks: []*ir.Block{blk}}
	d := ir.NewDesign()
	d.Add(mod)
	var diags ir.Diagnostics
	New().Extract(d, &diags)
	return blk, &diags
}

func TestAssignFragment(t *testing.T) {
	stmt := parseStmt(t, `<assigndly><add><varref name="count"/><const name="8'h1"/></add><varref name="count"/></assigndly>`)
	blk, _ := extractBlock(t, stmt)

	if len(blk.Frags) != 1 {
		t.Fatalf("frags = %+v", blk.Frags)
	}
	f := blk.Frags[0]
	if f.Kind != ir.FragAssign || f.Target != "count" || !f.Nonblocking {
		t.Fatalf("fragment = %+v", f)
	}
	if f.Label != "count <= (count + 8'h1)" {
		t.Fatalf("label = %q", f.Label)
	}
	if f.SSATarget != "count_1" {
		t.Fatalf("ssa target = %q", f.SSATarget)
	}
	// The use resolves before the define, so a self-reference reads the
	// prior (unversioned) value.
	if len(f.Uses) != 1 || f.Uses[0] != "count" {
		t.Fatalf("uses = %v", f.Uses)
	}

	if blk.Label != "Counter" {
		t.Fatalf("classification = %q", blk.Label)
	}
}

func TestConstantFolding(t *testing.T) {
	stmt := parseStmt(t, `<assign><add><const name="2"/><const name="3"/></add><varref name="x"/></assign>`)
	blk, _ := extractBlock(t, stmt)

	f := blk.Frags[0]
	if f.Label != "x = (2 + 3)" {
		t.Fatalf("label = %q", f.Label)
	}
	if f.Folded != "5" {
		t.Fatalf("folded = %q", f.Folded)
	}
	if f.Nonblocking {
		t.Fatalf("blocking assign flagged nonblocking")
	}
}

func TestFoldDoesNotTouchVariables(t *testing.T) {
	stmt := parseStmt(t, `<assign><add><varref name="a"/><const name="3"/></add><varref name="x"/></assign>`)
	blk, _ := extractBlock(t, stmt)
	if blk.Frags[0].Folded != "" {
		t.Fatalf("variable expression folded to %q", blk.Frags[0].Folded)
	}
}

func TestConditionalBranches(t *testing.T) {
	stmt := parseStmt(t, `<if>
 <eq><varref name="rst"/><const name="1"/></eq>
 <assigndly><const name="0"/><varref name="q"/></assigndly>
 <assigndly><varref name="d"/><varref name="q"/></assigndly>
</if>`)
	blk, _ := extractBlock(t, stmt)

	f := blk.Frags[0]
	if f.Kind != ir.FragCond {
		t.Fatalf("fragment = %+v", f)
	}
	if f.Label != "if ((rst == 1))" {
		t.Fatalf("label = %q", f.Label)
	}
	if len(f.Guards) != 2 || f.Guards[0] != "true" || f.Guards[1] != "false" {
		t.Fatalf("guards = %v", f.Guards)
	}
	if len(f.Branches) != 2 || len(f.Branches[0]) != 1 || len(f.Branches[1]) != 1 {
		t.Fatalf("branches = %+v", f.Branches)
	}
	if f.Branches[0][0].Target != "q" {
		t.Fatalf("then branch = %+v", f.Branches[0][0])
	}
	if len(f.Uses) != 1 || f.Uses[0] != "rst" {
		t.Fatalf("guard uses = %v", f.Uses)
	}
}

func TestIfWithoutElseKeepsEmptyBranch(t *testing.T) {
	stmt := parseStmt(t, `<if>
 <varref name="en"/>
 <assign><const name="1"/><varref name="x"/></assign>
</if>`)
	blk, _ := extractBlock(t, stmt)

	f := blk.Frags[0]
	if len(f.Branches) != 2 {
		t.Fatalf("branches = %d", len(f.Branches))
	}
	if len(f.Branches[1]) != 0 {
		t.Fatalf("else branch should be empty: %+v", f.Branches[1])
	}
}

func TestCaseDispatchAndFSMHint(t *testing.T) {
	stmt := parseStmt(t, `<case>
 <varref name="state"/>
 <caseitem><varref name="IDLE"/><assigndly><const name="2'h1"/><varref name="state"/></assigndly></caseitem>
 <caseitem><varref name="RUN"/><assigndly><const name="2'h0"/><varref name="state"/></assigndly></caseitem>
 <caseitem><assigndly><const name="2'h0"/><varref name="state"/></assigndly></caseitem>
</case>`)
	blk, _ := extractBlock(t, stmt)

	f := blk.Frags[0]
	if f.Kind != ir.FragCase || f.Label != "case (state)" {
		t.Fatalf("fragment = %+v", f)
	}
	if len(f.Guards) != 3 || f.Guards[0] != "IDLE" || f.Guards[1] != "RUN" || f.Guards[2] != "default" {
		t.Fatalf("guards = %v", f.Guards)
	}

	if blk.Label != "FSM Controller" {
		t.Fatalf("classification = %q", blk.Label)
	}
	if blk.FSM == nil || blk.FSM.StateNet != "state" || len(blk.FSM.States) != 3 {
		t.Fatalf("fsm hint = %+v", blk.FSM)
	}
	// Literal writes back to the state net are state definitions.
	for i, branch := range f.Branches {
		if len(branch) != 1 || !branch[0].StateDef {
			t.Fatalf("branch %d not marked as state definition: %+v", i, branch)
		}
	}
}

func TestFSMRequiresNamedGuards(t *testing.T) {
	stmt := parseStmt(t, `<case>
 <varref name="state"/>
 <caseitem><const name="2'h0"/><assigndly><const name="2'h1"/><varref name="state"/></assigndly></caseitem>
</case>`)
	blk, _ := extractBlock(t, stmt)

	if blk.FSM != nil {
		t.Fatalf("numeric guards should not earn an FSM hint: %+v", blk.FSM)
	}
}

func TestLoopFragment(t *testing.T) {
	stmt := parseStmt(t, `<while>
 <lt><varref name="i"/><const name="4"/></lt>
 <assign><const name="0"/><varref name="mem"/></assign>
</while>`)
	blk, _ := extractBlock(t, stmt)

	f := blk.Frags[0]
	if f.Kind != ir.FragLoop {
		t.Fatalf("fragment = %+v", f)
	}
	if f.Label != "while ((i < 4))" {
		t.Fatalf("label = %q", f.Label)
	}
	if len(f.Guards) != 1 || f.Guards[0] != "body" {
		t.Fatalf("guards = %v", f.Guards)
	}
	if len(f.Branches) != 1 || len(f.Branches[0]) != 1 {
		t.Fatalf("body = %+v", f.Branches)
	}
}

func TestUnsupportedConstructBecomesOpaque(t *testing.T) {
	stmt := parseStmt(t, `<jumpblock/>`)
	blk, diags := extractBlock(t, stmt)

	f := blk.Frags[0]
	if f.Kind != ir.FragOpaque || f.Label != "jumpblock" {
		t.Fatalf("fragment = %+v", f)
	}
	var saw bool
	for _, d := range diags.Items() {
		if d.Code == "unsupported-construct" && strings.Contains(d.Message, "jumpblock") {
			saw = true
		}
	}
	if !saw {
		t.Fatalf("unsupported construct not reported: %+v", diags.Items())
	}
}

func TestSSAVersionsSpanBlocks(t *testing.T) {
	first := parseStmt(t, `<assign><const name="1"/><varref name="x"/></assign>`)
	second := parseStmt(t, `<assign><const name="2"/><varref name="x"/></assign>`)
	third := parseStmt(t, `<assign><add><varref name="x"/><varref name="y"/></add><varref name="z"/></assign>`)
	blk, _ := extractBlock(t, first, second, third)

	if got := blk.Frags[0].SSATarget; got != "x_1" {
		t.Fatalf("first def = %q", got)
	}
	if got := blk.Frags[1].SSATarget; got != "x_2" {
		t.Fatalf("second def = %q", got)
	}
	uses := blk.Frags[2].Uses
	if len(uses) != 2 || uses[0] != "x_2" || uses[1] != "y" {
		t.Fatalf("uses = %v", uses)
	}
}

func TestClassifyCombinational(t *testing.T) {
	stmt := parseStmt(t, `<assign><and><varref name="a"/><varref name="b"/></and><varref name="y"/></assign>`)
	blk := &ir.Block{Kind: ir.BlockAlways, Sequential: false, Trigger: "*", Body: []*vast.Node{stmt}}
	mod := &ir.Module{Name: "m", Blocks: []*ir.Block{blk}}
	d := ir.NewDesign()
	d.Add(mod)
	var diags ir.Diagnostics
	New().Extract(d, &diags)

	if blk.Label != "Combinational Logic" {
		t.Fatalf("classification = %q", blk.Label)
	}
}

func TestClassifyContinuousAssignment(t *testing.T) {
	stmt := parseStmt(t, `<contassign><varref name="a"/><varref name="y"/></contassign>`)
	blk := &ir.Block{Kind: ir.BlockAssign, Body: []*vast.Node{stmt}}
	mod := &ir.Module{Name: "m", Blocks: []*ir.Block{blk}}
	d := ir.NewDesign()
	d.Add(mod)
	var diags ir.Diagnostics
	New().Extract(d, &diags)

	if blk.Label != "Continuous Assignment" {
		t.Fatalf("classification = %q", blk.Label)
	}
	if blk.Frags[0].Kind != ir.FragAssign {
		t.Fatalf("contassign fragment = %+v", blk.Frags[0])
	}
}
