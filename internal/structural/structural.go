// Package structural computes the port/net connectivity model per module:
// which endpoints attach to each net, which of them drive it, and the net's
// inferred direction. Direction inference is monotonic over a lattice — a net
// observed as both driven and consumed is bidirectional and never narrows
// back within the same build. Electrical correctness is out of scope:
// multiple drivers are recorded as a list, not rejected, because the
// visualization needs to show every driver.
package structural

import (
	"github.com/verigraph/verigraph/internal/ir"
)

// Build annotates every module's nets with endpoints, drivers and inferred
// directions. Resolution supplies the instance→definition binding; only
// resolved instances contribute child-port observations.
func Build(design *ir.Design, diags *ir.Diagnostics) {
	for _, mod := range design.Modules {
		buildModule(design, mod, diags)
	}
}

func buildModule(design *ir.Design, mod *ir.Module, diags *ir.Diagnostics) {
	// Definition-side observations: the module's own ports. An input port
	// drives its net from outside; an output port consumes it; inout does
	// both.
	for _, port := range mod.Ports {
		net := mod.Net(port.Name)
		if net == nil {
			continue
		}
		ep := ir.Endpoint{Port: port.Name}
		switch port.Dir {
		case ir.DirInput:
			ep.Driver = true
			attach(net, ep, true, false)
		case ir.DirOutput:
			attach(net, ep, false, true)
		case ir.DirInout:
			ep.Driver = true
			attach(net, ep, true, true)
		}
	}

	// Instance-side observations: each resolved connection maps a parent
	// net through the child port's declared direction. A child output
	// drives the parent net; a child input consumes it.
	for _, inst := range mod.Instances {
		if !inst.Resolved {
			continue
		}
		def, ok := design.Module(inst.DefName)
		if !ok {
			continue
		}
		for _, conn := range inst.Connections {
			if conn.Net == "" {
				if conn.Expr != "" {
					diags.Warnf("expression-connection", mod.Name,
						"instance %s port %s wired to expression %q; endpoint not tracked",
						inst.Name, conn.Port, conn.Expr)
				}
				continue
			}
			net := mod.Net(conn.Net)
			if net == nil {
				// Implicitly declared wire; tolerated with a synthetic net.
				net = &ir.Net{Name: conn.Net, Width: 1, Dir: ir.DirInternal}
				mod.Nets = append(mod.Nets, net)
			}
			port, known := def.Port(conn.Port)
			ep := ir.Endpoint{
				Instance: inst.Name,
				Port:     conn.Port,
				HasBits:  conn.HasBits,
				MSB:      conn.MSB,
				LSB:      conn.LSB,
			}
			if !known {
				attach(net, ep, false, false)
				continue
			}
			switch port.Dir {
			case ir.DirOutput:
				ep.Driver = true
				attach(net, ep, true, false)
			case ir.DirInput:
				attach(net, ep, false, true)
			case ir.DirInout:
				ep.Driver = true
				attach(net, ep, true, true)
			}
		}
	}

	for _, net := range mod.Nets {
		if len(net.Drivers) > 1 {
			diags.Add(ir.Diagnostic{
				Severity: ir.SevInfo,
				Code:     "multiple-drivers",
				Module:   mod.Name,
				Message:  "net " + net.Name + " has multiple drivers",
			})
		}
	}
}

// attach records the endpoint and widens the net's direction. The widening
// goes through Observe so classification can only move up the lattice.
func attach(net *ir.Net, ep ir.Endpoint, drives, consumes bool) {
	net.Endpoints = append(net.Endpoints, ep)
	if drives {
		net.Drivers = append(net.Drivers, ep)
	}
	net.Dir = Observe(net.Dir, drives, consumes)
}

// Observe widens a direction classification by one driven/consumed
// observation. Exported so aggregation re-runs and tests can verify
// monotonicity directly.
func Observe(d ir.Direction, drives, consumes bool) ir.Direction {
	switch {
	case drives && consumes:
		return d.Union(ir.DirBidir)
	case drives:
		return d.Union(ir.DirInput)
	case consumes:
		return d.Union(ir.DirOutput)
	default:
		return d.Union(ir.DirInternal)
	}
}
