package pot

import "math/big"

// Reader is the rate provider a forwarder snapshots before each send. The
// three reads are taken back to back so the triple stays consistent; every
// value is returned RAY scaled except Rho, which is Unix seconds.
type Reader interface {
	SSR() (*big.Int, error)
	Chi() (*big.Int, error)
	Rho() (*big.Int, error)
}

// Snapshot collects the three live reads into one record.
func Snapshot(r Reader) (Data, error) {
	ssr, err := r.SSR()
	if err != nil {
		return Data{}, err
	}
	chi, err := r.Chi()
	if err != nil {
		return Data{}, err
	}
	rho, err := r.Rho()
	if err != nil {
		return Data{}, err
	}
	return NewData(ssr, chi, rho), nil
}
