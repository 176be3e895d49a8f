package adi

import (
	"github.com/san-kum/pdesim/internal/pde"
	"github.com/san-kum/pdesim/internal/results"
)

// CraigSneyd is the Douglas scheme, optionally followed by the Craig-Sneyd
// cross-term correction:
//
//	Y0 = U − dt·(Lx + Ly + Lxy)(t0)·U
//	(I + θdt·Lx(t1))·Y1 = Y0 + θdt·Lx(t0)·U
//	(I + θdt·Ly(t1))·Y2 = Y1 + θdt·Ly(t0)·U
//	Z0 = Y0 − ½dt·(Lxy(t1)·Y2 − Lxy(t0)·U), then both sweeps again from Z0.
type CraigSneyd struct {
	theta   float64
	correct bool
}

func NewDouglas(theta float64) (*CraigSneyd, error) {
	if err := checkTheta(theta); err != nil {
		return nil, err
	}
	return &CraigSneyd{theta: theta}, nil
}

func NewCraigSneyd(theta float64) (*CraigSneyd, error) {
	if err := checkTheta(theta); err != nil {
		return nil, err
	}
	return &CraigSneyd{theta: theta, correct: true}, nil
}

func (s *CraigSneyd) Name() string {
	if s.correct {
		return "craig_sneyd"
	}
	return "douglas"
}

func (s *CraigSneyd) Experimental() bool { return s.correct }

func (s *CraigSneyd) Solve(b *pde.Bundle2D) (*results.Result2D, error) {
	return solve(s.Name(), b, s.step)
}

func (s *CraigSneyd) step(e *engine, f0, f1 *field, u [][]float64) ([][]float64, error) {
	dt := f1.t - f0.t
	w := s.theta * dt

	y0 := e.newSurface()
	e.interior(func(i, j int) {
		y0[i][j] = u[i][j] - dt*(e.lx(f0, u, i, j)+e.ly(f0, u, i, j)+e.lxy(f0, u, i, j))
	})

	y2, err := s.sweeps(e, f0, f1, w, y0, u)
	if err != nil || !s.correct {
		return y2, err
	}

	z := e.newSurface()
	e.interior(func(i, j int) {
		z[i][j] = y0[i][j] - 0.5*dt*(e.lxy(f1, y2, i, j)-e.lxy(f0, u, i, j))
	})
	return s.sweeps(e, f0, f1, w, z, u)
}

func (s *CraigSneyd) sweeps(e *engine, f0, f1 *field, w float64, start, u [][]float64) ([][]float64, error) {
	rhs := e.newSurface()
	e.interior(func(i, j int) {
		rhs[i][j] = start[i][j] + w*e.lx(f0, u, i, j)
	})
	y1 := e.newSurface()
	if err := e.sweepX(f1, w, rhs, u, y1); err != nil {
		return nil, err
	}

	e.interior(func(i, j int) {
		rhs[i][j] = y1[i][j] + w*e.ly(f0, u, i, j)
	})
	y2 := e.newSurface()
	if err := e.sweepY(f1, w, rhs, u, y2); err != nil {
		return nil, err
	}
	return y2, nil
}

// PeacemanRachford takes two half steps with th = (t0 + t1)/2:
//
//	(I + ½dt·Lx(th))·Y = U − ½dt·(Ly + Lxy)(t0)·U
//	(I + ½dt·Ly(t1))·U1 = Y − ½dt·(Lx + Lxy)(th)·Y
type PeacemanRachford struct{}

func NewPeacemanRachford() *PeacemanRachford { return &PeacemanRachford{} }

func (s *PeacemanRachford) Name() string { return "peaceman_rachford" }

func (s *PeacemanRachford) Experimental() bool { return true }

func (s *PeacemanRachford) Solve(b *pde.Bundle2D) (*results.Result2D, error) {
	var mid *field
	return solve(s.Name(), b, func(e *engine, f0, f1 *field, u [][]float64) ([][]float64, error) {
		if mid == nil {
			mid = newField(e.nx * e.ny)
		}
		e.fill(mid, 0.5*(f0.t+f1.t))
		return halfSteps(e, f0, mid, f1, u)
	})
}

func halfSteps(e *engine, f0, mid, f1 *field, u [][]float64) ([][]float64, error) {
	half := 0.5 * (f1.t - f0.t)

	rhs := e.newSurface()
	e.interior(func(i, j int) {
		rhs[i][j] = u[i][j] - half*(e.ly(f0, u, i, j)+e.lxy(f0, u, i, j))
	})
	y := e.newSurface()
	if err := e.sweepX(mid, half, rhs, u, y); err != nil {
		return nil, err
	}

	e.interior(func(i, j int) {
		rhs[i][j] = y[i][j] - half*(e.lx(mid, y, i, j)+e.lxy(mid, y, i, j))
	})
	out := e.newSurface()
	if err := e.sweepY(f1, half, rhs, y, out); err != nil {
		return nil, err
	}
	return out, nil
}

// OperatorSplitting applies a θ-step in x with the cross term explicit and
// then a θ-step in y:
//
//	(I + θdt·Lx(t1))·Y = U − (1−θ)dt·Lx(t0)·U − dt·Lxy(t0)·U
//	(I + θdt·Ly(t1))·U1 = Y − (1−θ)dt·Ly(t0)·Y
type OperatorSplitting struct {
	theta float64
}

func NewOperatorSplitting(theta float64) (*OperatorSplitting, error) {
	if err := checkTheta(theta); err != nil {
		return nil, err
	}
	return &OperatorSplitting{theta: theta}, nil
}

func (s *OperatorSplitting) Name() string { return "operator_splitting" }

func (s *OperatorSplitting) Experimental() bool { return false }

func (s *OperatorSplitting) Solve(b *pde.Bundle2D) (*results.Result2D, error) {
	return solve(s.Name(), b, s.step)
}

func (s *OperatorSplitting) step(e *engine, f0, f1 *field, u [][]float64) ([][]float64, error) {
	dt := f1.t - f0.t
	w := s.theta * dt
	ex := (1 - s.theta) * dt

	rhs := e.newSurface()
	e.interior(func(i, j int) {
		rhs[i][j] = u[i][j] - ex*e.lx(f0, u, i, j) - dt*e.lxy(f0, u, i, j)
	})
	y := e.newSurface()
	if err := e.sweepX(f1, w, rhs, u, y); err != nil {
		return nil, err
	}

	e.interior(func(i, j int) {
		rhs[i][j] = y[i][j] - ex*e.ly(f0, y, i, j)
	})
	out := e.newSurface()
	if err := e.sweepY(f1, w, rhs, y, out); err != nil {
		return nil, err
	}
	return out, nil
}
