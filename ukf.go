package gofusion

import (
	"fmt"
	"math"

	log "github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/mat"
)

// UKF is an unscented Kalman filter tracking a single object with the
// constant turn rate and velocity model, fed by lidar and radar measurements.
// A UKF is not safe for concurrent use.
type UKF struct {
	cfg       Config
	x         *mat.VecDense // [px, py, v, yaw, yaw_rate]
	p         *mat.SymDense
	weights   *mat.VecDense
	sigmaPred *mat.Dense // propagated sigma points, one per column
	// sigmaFresh is set by Prediction and cleared by any update: the radar
	// update needs sigma points matching the current state.
	sigmaFresh  bool
	lidarR      *mat.SymDense
	radarR      *mat.SymDense
	timeUS      int64
	initialized bool
	useLaser    bool
	useRadar    bool
	nisLaser    float64
	nisRadar    float64
	repairs     int
	log         log.FieldLogger
}

// NewUKF returns a new UKF with the provided configuration. Use DefaultConfig
// for the reference tuning.
func NewUKF(cfg Config) (*UKF, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	ukf := &UKF{
		cfg:     cfg,
		weights: sigmaWeights(augDim),
		lidarR:  cfg.lidarNoise(),
		radarR:  cfg.radarNoise(),
		log:     log.StandardLogger(),
	}
	ukf.Reset()
	return ukf, nil
}

// Reset drops the track: the state is zeroed, the covariance goes back to
// the prior and the next measurement bootstraps the filter again.
func (u *UKF) Reset() {
	u.x = mat.NewVecDense(stateDim, nil)
	u.p = Diagonal(u.cfg.PriorDiag[:]...)
	u.sigmaPred = mat.NewDense(stateDim, numSigma, nil)
	u.sigmaFresh = false
	u.timeUS = 0
	u.initialized = false
	u.useLaser = true
	u.useRadar = true
	u.nisLaser = 0
	u.nisRadar = 0
	u.repairs = 0
}

// SetLogger replaces the logger, which defaults to the logrus standard logger.
func (u *UKF) SetLogger(l log.FieldLogger) {
	u.log = l
}

// ProcessMeasurement folds one measurement into the track. The first
// measurement seeds the state. Every following one runs a prediction up to
// its timestamp and then one measurement update.
//
// A measurement older than the filter clock is rejected with ErrInvalidInput
// and nothing changes. A failed prediction returns ErrNumericalFailure and
// leaves the state and the clock untouched. A failed update returns
// ErrNumericalFailure and keeps the predicted state.
func (u *UKF) ProcessMeasurement(m Measurement) (*UKFEstimate, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	if !u.initialized {
		u.bootstrap(m)
		return u.estimate(m, nil, nil, nil, false, true), nil
	}
	if m.Timestamp < u.timeUS {
		return nil, fmt.Errorf("%w: timestamp %d is before the filter clock %d", ErrInvalidInput, m.Timestamp, u.timeUS)
	}

	dt := float64(m.Timestamp-u.timeUS) / usPerSec
	if err := u.Prediction(dt); err != nil {
		return nil, err
	}
	u.timeUS = m.Timestamp
	predCovar := mat.NewSymDense(stateDim, nil)
	predCovar.CopySym(u.p)

	sensor, ok := u.dispatch(m)
	if !ok {
		u.log.WithFields(log.Fields{
			"sensor":    m.Sensor,
			"timestamp": m.Timestamp,
		}).Debug("measurement update skipped, sensor disabled by alternation")
		return u.estimate(m, predCovar, nil, nil, false, false), nil
	}

	var (
		innov *mat.VecDense
		s     *mat.SymDense
		err   error
	)
	switch sensor {
	case Laser:
		innov, s, err = u.updateLidar(m)
	case Radar:
		innov, s, err = u.updateRadar(m)
	}
	if u.cfg.Dispatch == DispatchAlternating {
		u.useLaser = sensor == Radar
		u.useRadar = sensor == Laser
	}
	if err != nil {
		u.log.WithFields(log.Fields{
			"sensor":    sensor,
			"timestamp": m.Timestamp,
		}).WithError(err).Warn("measurement update skipped")
		return nil, err
	}

	est := u.estimate(m, predCovar, innov, s, true, false)
	u.log.WithFields(log.Fields{
		"sensor":    sensor,
		"timestamp": m.Timestamp,
		"dt":        dt,
		"nis":       est.nis,
	}).Debug("measurement processed")
	return est, nil
}

// dispatch returns which update a measurement gets after the prediction.
func (u *UKF) dispatch(m Measurement) (SensorType, bool) {
	if u.cfg.Dispatch == DispatchBySensor {
		return m.Sensor, true
	}
	switch {
	case u.useLaser:
		return Laser, m.Sensor == Laser
	case u.useRadar:
		return Radar, m.Sensor == Radar
	}
	return 0, false
}

// bootstrap seeds the state from the first measurement. The covariance keeps its prior.
func (u *UKF) bootstrap(m Measurement) {
	switch m.Sensor {
	case Radar:
		seed := polarToState(m.Raw.AtVec(idxRho), m.Raw.AtVec(idxPhi), m.Raw.AtVec(idxRhoDot))
		for i, v := range seed {
			u.x.SetVec(i, v)
		}
		u.useRadar = false
	case Laser:
		u.x.Zero()
		u.x.SetVec(idxPX, m.Raw.AtVec(0))
		u.x.SetVec(idxPY, m.Raw.AtVec(1))
		u.useLaser = false
	}
	u.timeUS = m.Timestamp
	u.initialized = true
	u.log.WithFields(log.Fields{
		"sensor":    m.Sensor,
		"timestamp": m.Timestamp,
	}).Debug("filter bootstrapped")
}

// Prediction propagates the state and its covariance dt seconds ahead through
// the sigma points, and retains the propagated sigma points for the radar update.
func (u *UKF) Prediction(dt float64) error {
	if dt < 0 || math.IsNaN(dt) || math.IsInf(dt, 0) {
		return fmt.Errorf("%w: prediction interval must be finite and non-negative, got %f", ErrInvalidInput, dt)
	}
	varA, varYawdd := u.cfg.processNoise()
	xAug, pAug := augment(u.x, u.p, varA, varYawdd)

	l, jitter, err := choleskyWithJitter(pAug, u.cfg.CholeskyJitter, u.cfg.CholeskyRetries)
	if err != nil {
		// Last resort: lift the covariance back onto the positive definite cone.
		if _, rerr := repairCovariance(pAug, math.Max(u.cfg.CovarianceFloor, u.cfg.CholeskyJitter)); rerr == nil {
			l, jitter, err = choleskyWithJitter(pAug, u.cfg.CholeskyJitter, u.cfg.CholeskyRetries)
		}
		if err != nil {
			u.log.WithFields(log.Fields{"dt": dt}).WithError(err).Warn("prediction skipped")
			return err
		}
		u.repairs++
	}
	if jitter > 0 {
		u.log.WithFields(log.Fields{"jitter": jitter}).Warn("augmented covariance regularized")
	}
	pts := sigmaPoints(xAug, l)

	sigmaPred := mat.NewDense(stateDim, numSigma, nil)
	var aug [augDim]float64
	for i := 0; i < numSigma; i++ {
		mat.Col(aug[:], i, pts)
		out := ctrvPropagate(aug, dt, u.cfg.YawRateEpsilon)
		sigmaPred.SetCol(i, out[:])
	}

	x := mat.NewVecDense(stateDim, nil)
	x.MulVec(sigmaPred, u.weights)
	p := mat.NewSymDense(stateDim, nil)
	diff := mat.NewVecDense(stateDim, nil)
	for i := 0; i < numSigma; i++ {
		diff.SubVec(sigmaPred.ColView(i), x)
		diff.SetVec(idxYaw, NormalizeAngle(diff.AtVec(idxYaw)))
		p.SymRankOne(p, u.weights.AtVec(i), diff)
	}
	if !allFinite(x) || !allFinite(p) {
		err := fmt.Errorf("%w: prediction produced non-finite values", ErrNumericalFailure)
		u.log.WithFields(log.Fields{"dt": dt}).WithError(err).Warn("prediction skipped")
		return err
	}
	u.stabilize(p)

	u.x = x
	u.p = p
	u.sigmaPred = sigmaPred
	u.sigmaFresh = true
	return nil
}

// stabilize lifts negative eigenvalues of p, which the negative central
// weight can produce, up to the configured floor.
func (u *UKF) stabilize(p *mat.SymDense) {
	if lowest, ok := MinEigenvalue(p); ok && lowest >= 0 {
		return
	}
	repaired, err := repairCovariance(p, u.cfg.CovarianceFloor)
	if err != nil {
		u.log.WithError(err).Warn("covariance repair failed")
		return
	}
	if repaired {
		u.repairs++
		u.log.WithFields(log.Fields{"repairs": u.repairs}).Debug("covariance repaired")
	}
}

// commit installs an updated state and covariance.
func (u *UKF) commit(x *mat.VecDense, p *mat.SymDense) {
	u.stabilize(p)
	u.x = x
	u.p = p
	u.sigmaFresh = false
}

// estimate snapshots the filter into a UKFEstimate.
func (u *UKF) estimate(m Measurement, predCovar mat.Symmetric, innov *mat.VecDense, s *mat.SymDense, updated, bootstrapped bool) *UKFEstimate {
	state := mat.NewVecDense(stateDim, nil)
	state.CopyVec(u.x)
	covar := mat.NewSymDense(stateDim, nil)
	covar.CopySym(u.p)
	if predCovar == nil {
		predCovar = covar
	}
	meas := mat.NewVecDense(m.Raw.Len(), nil)
	meas.CopyVec(m.Raw)
	est := &UKFEstimate{
		sensor:       m.Sensor,
		timestamp:    m.Timestamp,
		state:        state,
		meas:         meas,
		innovation:   innov,
		covar:        covar,
		predCovar:    predCovar,
		updated:      updated,
		bootstrapped: bootstrapped,
	}
	if s != nil {
		est.innovCovar = s
	}
	if updated {
		est.nis = u.NIS(m.Sensor)
	}
	return est
}

// innovationInverse returns S⁻¹, failing when S is singular or not finite.
func innovationInverse(s *mat.SymDense) (*mat.Dense, error) {
	if !allFinite(s) {
		return nil, fmt.Errorf("%w: innovation covariance is not finite", ErrNumericalFailure)
	}
	var sInv mat.Dense
	if err := sInv.Inverse(s); err != nil {
		return nil, fmt.Errorf("%w: innovation covariance is singular: %v", ErrNumericalFailure, err)
	}
	return &sInv, nil
}

// State returns a copy of the state [px, py, v, yaw, yaw_rate].
func (u *UKF) State() *mat.VecDense {
	x := mat.NewVecDense(stateDim, nil)
	x.CopyVec(u.x)
	return x
}

// Covariance returns a copy of the state covariance.
func (u *UKF) Covariance() *mat.SymDense {
	p := mat.NewSymDense(stateDim, nil)
	p.CopySym(u.p)
	return p
}

// NIS returns the normalized innovation squared of the last update of this sensor.
func (u *UKF) NIS(sensor SensorType) float64 {
	switch sensor {
	case Laser:
		return u.nisLaser
	case Radar:
		return u.nisRadar
	}
	return math.NaN()
}

// NISLaser returns the NIS of the last lidar update.
func (u *UKF) NISLaser() float64 { return u.nisLaser }

// NISRadar returns the NIS of the last radar update.
func (u *UKF) NISRadar() float64 { return u.nisRadar }

// Weights returns a copy of the sigma point weights.
func (u *UKF) Weights() *mat.VecDense {
	w := mat.NewVecDense(numSigma, nil)
	w.CopyVec(u.weights)
	return w
}

// Initialized returns whether a measurement has seeded the filter.
func (u *UKF) Initialized() bool { return u.initialized }

// Timestamp returns the filter clock in microseconds.
func (u *UKF) Timestamp() int64 { return u.timeUS }

// Repairs returns how many times the covariance had to be lifted back to
// positive semi-definiteness since the last reset.
func (u *UKF) Repairs() int { return u.repairs }

// Config returns the configuration of the filter.
func (u *UKF) Config() Config { return u.cfg }

func (u *UKF) String() string {
	return fmt.Sprintf("UKF t=%dµs dispatch=%s\nx=%v\nP=%v", u.timeUS, u.cfg.Dispatch, mat.Formatted(u.x.T(), mat.Prefix("  ")), mat.Formatted(u.p, mat.Prefix("  ")))
}
