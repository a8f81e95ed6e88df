package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/boundwalk/boundwalk/domain"
	"github.com/boundwalk/boundwalk/ir"
)

// programFile is the on-disk JSON shape of an ir.Program, built against
// domain.PathDomain's expression conventions (domain.CalleeName for a
// direct call's callee, domain.N for an integer case/expression value):
// enough to drive exploration with the reference domain from the command
// line without a real frontend, which spec §1 places out of scope.
type programFile struct {
	EntryPoints []string             `json:"entry_points"`
	Globals     []string             `json:"globals"`
	Funcs       map[string]*funcFile `json:"funcs"`
}

type funcFile struct {
	Params []string    `json:"params"`
	Return *string     `json:"return"`
	Throw  string      `json:"throw"`
	Locals []string    `json:"locals"`
	Entry  string      `json:"entry"`
	Blocks []blockFile `json:"blocks"`
}

type blockFile struct {
	Label string   `json:"label"`
	Term  termFile `json:"term"`
}

type jumpFile struct {
	Dst        string `json:"dst"`
	Retreating bool   `json:"retreating"`
}

type caseFile struct {
	Case int      `json:"case"`
	Jump jumpFile `json:"jump"`
}

// termFile is a union of every terminator kind's fields; Kind selects
// which subset applies.
type termFile struct {
	Kind string `json:"kind"`

	// br
	Jump *jumpFile `json:"jump,omitempty"`

	// switch
	Cases []caseFile `json:"cases,omitempty"`
	Else  *jumpFile  `json:"else,omitempty"`

	// iswitch
	Candidates []jumpFile `json:"candidates,omitempty"`

	// call
	Callee    string    `json:"callee,omitempty"`
	Args      []int     `json:"args,omitempty"`
	AReturn   *string   `json:"areturn,omitempty"`
	Return    *jumpFile `json:"return,omitempty"`
	Throw     *jumpFile `json:"throw,omitempty"`
	Recursive bool      `json:"recursive,omitempty"`

	// return / throw
	Exp *int `json:"exp,omitempty"`
}

// LoadProgram reads a JSON-encoded program from path and builds the
// ir.Program the engine explores, plus the entry-point names declared
// alongside it.
func LoadProgram(path string) (*ir.Program, []string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("reading program %s: %w", path, err)
	}
	var pf programFile
	if err := json.Unmarshal(data, &pf); err != nil {
		return nil, nil, fmt.Errorf("parsing program %s: %w", path, err)
	}

	prog := &ir.Program{
		Funcs:   make(map[string]*ir.Func, len(pf.Funcs)),
		Globals: varSet(pf.Globals),
	}

	blocksByLabel := make(map[string]map[string]*ir.Block)

	// Pass 1: build functions and blocks with nil terminators, so jump
	// targets anywhere in the program can be resolved in pass 2.
	for name, ff := range pf.Funcs {
		fn := &ir.Func{
			Name:   name,
			Params: varsOf(ff.Params),
			Locals: varsOf(ff.Locals),
			FThrow: ir.Var(ff.Throw),
		}
		if ff.Return != nil {
			v := ir.Var(*ff.Return)
			fn.FReturn = &v
		}
		blocks := make(map[string]*ir.Block, len(ff.Blocks))
		for i, bf := range ff.Blocks {
			b := &ir.Block{Parent: fn, SortIndex: i, Lbl: bf.Label}
			blocks[bf.Label] = b
		}
		blocksByLabel[name] = blocks
		if ff.Entry != "" {
			entry, ok := blocks[ff.Entry]
			if !ok {
				return nil, nil, fmt.Errorf("function %q: entry block %q not found", name, ff.Entry)
			}
			fn.Entry = entry
		}
		prog.Funcs[name] = fn
	}

	// Pass 2: fill in terminators now that every block in every function
	// is addressable.
	for name, ff := range pf.Funcs {
		blocks := blocksByLabel[name]
		for _, bf := range ff.Blocks {
			term, err := buildTerminator(bf.Term, blocksByLabel)
			if err != nil {
				return nil, nil, fmt.Errorf("function %q block %q: %w", name, bf.Label, err)
			}
			blocks[bf.Label].Term = term
		}
	}

	return prog, pf.EntryPoints, nil
}

func varsOf(names []string) []ir.Var {
	out := make([]ir.Var, len(names))
	for i, n := range names {
		out[i] = ir.Var(n)
	}
	return out
}

func varSet(names []string) map[ir.Var]struct{} {
	out := make(map[ir.Var]struct{}, len(names))
	for _, n := range names {
		out[ir.Var(n)] = struct{}{}
	}
	return out
}

func buildTerminator(tf termFile, blocksByLabel map[string]map[string]*ir.Block) (ir.Terminator, error) {
	switch tf.Kind {
	case "br":
		if tf.Jump == nil {
			return nil, fmt.Errorf("br terminator missing jump")
		}
		j, err := resolveJumpAny(*tf.Jump, blocksByLabel)
		if err != nil {
			return nil, err
		}
		return ir.Br{Jump: j}, nil

	case "switch":
		tbl := make([]ir.SwitchCase, len(tf.Cases))
		for i, c := range tf.Cases {
			j, err := resolveJumpAny(c.Jump, blocksByLabel)
			if err != nil {
				return nil, err
			}
			tbl[i] = ir.SwitchCase{Case: domain.N(c.Case), Jump: j}
		}
		if tf.Else == nil {
			return nil, fmt.Errorf("switch terminator missing else arm")
		}
		els, err := resolveJumpAny(*tf.Else, blocksByLabel)
		if err != nil {
			return nil, err
		}
		return ir.Switch{Key: domain.Key, Tbl: tbl, Els: els}, nil

	case "iswitch":
		tbl := make([]ir.Jump, len(tf.Candidates))
		for i, c := range tf.Candidates {
			j, err := resolveJumpAny(c, blocksByLabel)
			if err != nil {
				return nil, err
			}
			tbl[i] = j
		}
		return ir.Iswitch{Ptr: domain.Key, Tbl: tbl}, nil

	case "call":
		if tf.Return == nil {
			return nil, fmt.Errorf("call terminator missing return jump")
		}
		ret, err := resolveJumpAny(*tf.Return, blocksByLabel)
		if err != nil {
			return nil, err
		}
		call := ir.Call{
			Callee:    domain.CalleeName(tf.Callee),
			Return:    ret,
			Recursive: tf.Recursive,
		}
		for _, a := range tf.Args {
			call.Args = append(call.Args, domain.N(a))
		}
		if tf.AReturn != nil {
			v := ir.Var(*tf.AReturn)
			call.AReturn = &v
		}
		if tf.Throw != nil {
			j, err := resolveJumpAny(*tf.Throw, blocksByLabel)
			if err != nil {
				return nil, err
			}
			call.Throw = &j
		}
		return call, nil

	case "return":
		var exp *ir.Exp
		if tf.Exp != nil {
			var e ir.Exp = domain.N(*tf.Exp)
			exp = &e
		}
		return ir.Return{Exp: exp}, nil

	case "throw":
		var exc ir.Exp
		if tf.Exp != nil {
			exc = domain.N(*tf.Exp)
		}
		return ir.Throw{Exc: exc}, nil

	case "unreachable":
		return ir.Unreachable{}, nil

	default:
		return nil, fmt.Errorf("unknown terminator kind %q", tf.Kind)
	}
}

// resolveJumpAny resolves a jump whose destination may live in any
// function (JSON programs don't repeat the enclosing function name per
// jump, so search every function's blocks by label). Ambiguous labels
// across functions are not supported by this demo loader.
func resolveJumpAny(j jumpFile, blocksByLabel map[string]map[string]*ir.Block) (ir.Jump, error) {
	for _, blocks := range blocksByLabel {
		if b, ok := blocks[j.Dst]; ok {
			return ir.Jump{Dst: b, Retreating: j.Retreating}, nil
		}
	}
	return ir.Jump{}, fmt.Errorf("jump target %q not found in any function", j.Dst)
}
