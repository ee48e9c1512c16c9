package solver_test

import (
	"errors"
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/roverdyn/internal/physics"
	"github.com/san-kum/roverdyn/internal/rover"
	"github.com/san-kum/roverdyn/internal/solver"
)

func baselineRover() rover.Rover {
	return rover.Rover{
		WheelAssembly: rover.WheelAssembly{
			Motor:   rover.Motor{StallTorque: 170, NoLoadTorque: 0, NoLoadSpeed: 3.80, Mass: 5.0},
			Reducer: rover.SpeedReducer{Type: "reverted", PinionDiameter: 0.04, GearDiameter: 0.07, Mass: 1.5},
			Wheel:   rover.Wheel{Radius: 0.30, Mass: 1.0},
		},
		ChassisMass:        659,
		SciencePayloadMass: 75,
		PowerSubsystemMass: 90,
	}
}

var mars = rover.Planet{Name: "mars", Gravity: 3.72}

var _ = Describe("Bisect", func() {
	It("converges on a simple root", func() {
		root, ok, err := solver.Bisect(func(x float64) (float64, error) {
			return x*x - 2, nil
		}, 0, 2, 60)
		Expect(err).NotTo(HaveOccurred())
		Expect(ok).To(BeTrue())
		Expect(root).To(BeNumerically("~", math.Sqrt2, 1e-12))
	})

	It("reports no bracket without a sign change", func() {
		root, ok, err := solver.Bisect(func(x float64) (float64, error) {
			return x + 1, nil
		}, 0, 2, 60)
		Expect(err).NotTo(HaveOccurred())
		Expect(ok).To(BeFalse())
		Expect(math.IsNaN(root)).To(BeTrue())
	})

	It("treats non-finite end values as no bracket", func() {
		_, ok, err := solver.Bisect(func(x float64) (float64, error) {
			if x == 0 {
				return math.Inf(-1), nil
			}
			return 1, nil
		}, 0, 2, 60)
		Expect(err).NotTo(HaveOccurred())
		Expect(ok).To(BeFalse())
	})

	It("moves the lower bound on an exact zero at the midpoint", func() {
		root, ok, _ := solver.Bisect(func(x float64) (float64, error) {
			return x - 1, nil
		}, 0, 2, 1)
		Expect(ok).To(BeTrue())
		Expect(root).To(Equal(1.5))
	})

	It("runs a fixed number of evaluations", func() {
		calls := 0
		_, _, _ = solver.Bisect(func(x float64) (float64, error) {
			calls++
			return x - 0.3, nil
		}, 0, 1, 50)
		Expect(calls).To(Equal(52))
	})

	It("propagates evaluation errors", func() {
		boom := errors.New("boom")
		_, _, err := solver.Bisect(func(x float64) (float64, error) {
			if x > 0.5 {
				return 0, boom
			}
			return -1, nil
		}, 0, 0.4, 10)
		Expect(err).NotTo(HaveOccurred())

		_, _, err = solver.Bisect(func(x float64) (float64, error) {
			if x > 0.5 {
				return 0, boom
			}
			return -1, nil
		}, 0, 1, 10)
		Expect(err).To(MatchError(boom))
	})
})

var _ = Describe("Solver", func() {
	var (
		model physics.Model
		s     solver.Solver
	)

	BeforeEach(func() {
		var err error
		model, err = physics.NewModel(baselineRover(), mars)
		Expect(err).NotTo(HaveOccurred())
		s, err = solver.New(model, solver.DefaultOptions())
		Expect(err).NotTo(HaveOccurred())
	})

	Context("on flat ground with Crr 0.15", func() {
		It("finds a finite speed below free rolling", func() {
			res, err := s.Solve(0, 0.15)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Feasible).To(BeTrue())
			Expect(res.Speed).To(BeNumerically(">", 0))
			Expect(res.Speed).To(BeNumerically("<", model.FreeRollingSpeed()))
			Expect(model.FreeRollingSpeed()).To(BeNumerically("~", 0.372, 1e-3))
		})

		It("drives the net force to zero", func() {
			res, err := s.Solve(0, 0.15)
			Expect(err).NotTo(HaveOccurred())
			f, err := model.NetForce(res.Omega, 0, 0.15)
			Expect(err).NotTo(HaveOccurred())
			Expect(math.Abs(f)).To(BeNumerically("<", 1e-6))
			Expect(res.Residual).To(Equal(f))
		})

		It("converts omega through the gear ratio", func() {
			res, _ := s.Solve(0, 0.15)
			Expect(res.Speed).To(BeNumerically("~", 0.30*res.Omega/model.GearRatio(), 1e-15))
		})
	})

	It("stays within the final bracket of the converged root", func() {
		converged, err := s.Solve(10, 0.2)
		Expect(err).NotTo(HaveOccurred())

		width := model.NoLoadSpeed() - solver.DefaultOmegaLow
		for _, n := range []int{4, 12, 24} {
			sn, err := solver.New(model, solver.Options{Iterations: n, OmegaLow: solver.DefaultOmegaLow})
			Expect(err).NotTo(HaveOccurred())
			res, err := sn.Solve(10, 0.2)
			Expect(err).NotTo(HaveOccurred())
			bound := width / math.Pow(2, float64(n+1))
			Expect(math.Abs(res.Omega - converged.Omega)).To(BeNumerically("<=", bound+1e-12))
		}
	})

	It("shrinks the residual as the iteration budget grows", func() {
		prev := math.Inf(1)
		for _, n := range []int{4, 12, 24, solver.DefaultIterations} {
			sn, err := solver.New(model, solver.Options{Iterations: n, OmegaLow: solver.DefaultOmegaLow})
			Expect(err).NotTo(HaveOccurred())
			res, err := sn.Solve(10, 0.2)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Feasible).To(BeTrue())

			f, err := model.NetForce(res.Omega, 10, 0.2)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Residual).To(Equal(f))
			Expect(math.Abs(res.Residual)).To(BeNumerically("<", prev), "n=%d", n)
			prev = math.Abs(res.Residual)
		}
		Expect(prev).To(BeNumerically("<", 1e-6))
	})

	It("slows down on steeper uphill slopes", func() {
		flat, _ := s.Solve(0, 0.1)
		hill, _ := s.Solve(25, 0.1)
		Expect(hill.Feasible).To(BeTrue())
		Expect(hill.Speed).To(BeNumerically("<", flat.Speed))
	})

	It("returns the undefined sentinel on a steep downhill with low Crr", func() {
		lo, _ := model.NetForce(solver.DefaultOmegaLow, -15, 0.01)
		hi, _ := model.NetForce(model.NoLoadSpeed(), -15, 0.01)
		Expect(lo * hi).To(BeNumerically(">", 0))

		res, err := s.Solve(-15, 0.01)
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Feasible).To(BeFalse())
		Expect(math.IsNaN(res.Speed)).To(BeTrue())
		Expect(math.IsNaN(res.Omega)).To(BeTrue())
		Expect(res.Slope).To(Equal(-15.0))
	})

	DescribeTable("rejects invalid inputs",
		func(slope, crr float64, want error) {
			_, err := s.Solve(slope, crr)
			Expect(errors.Is(err, want)).To(BeTrue(), "got %v", err)
			Expect(rover.IsDomain(err)).To(BeTrue())
		},
		Entry("zero Crr", 0.0, 0.0, rover.ErrNonPositiveCrr),
		Entry("negative Crr", 0.0, -0.1, rover.ErrNonPositiveCrr),
		Entry("angle above range", 75.0001, 0.15, rover.ErrAngleRange),
		Entry("angle below range", -80.0, 0.15, rover.ErrAngleRange),
	)

	It("accepts the boundary angle", func() {
		_, err := s.Solve(75.0, 0.15)
		Expect(err).NotTo(HaveOccurred())
	})

	It("is reproducible", func() {
		a, _ := s.Solve(12.5, 0.3)
		b, _ := s.Solve(12.5, 0.3)
		Expect(a).To(Equal(b))
	})
})

var _ = Describe("Options", func() {
	It("rejects an empty iteration budget", func() {
		Expect(solver.Options{Iterations: 0}.Validate()).To(HaveOccurred())
	})

	It("rejects a lower bound at or above no-load speed", func() {
		model, err := physics.NewModel(baselineRover(), mars)
		Expect(err).NotTo(HaveOccurred())
		_, err = solver.New(model, solver.Options{Iterations: 60, OmegaLow: 3.8})
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("TerminalSpeed", func() {
	It("fails fast on an invalid rover", func() {
		r := baselineRover()
		r.WheelAssembly.Reducer.Type = "planetary"
		_, err := solver.TerminalSpeed(r, mars, 0, 0.15, solver.DefaultOptions())
		Expect(rover.IsValidation(err)).To(BeTrue())
	})

	It("matches the Solver result", func() {
		model, _ := physics.NewModel(baselineRover(), mars)
		s, _ := solver.New(model, solver.DefaultOptions())
		want, _ := s.Solve(5, 0.2)
		got, err := solver.TerminalSpeed(baselineRover(), mars, 5, 0.2, solver.DefaultOptions())
		Expect(err).NotTo(HaveOccurred())
		Expect(got).To(Equal(want))
	})
})
