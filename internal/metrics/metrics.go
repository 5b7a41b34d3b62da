package metrics

import "github.com/prometheus/client_golang/prometheus"

// Domain counts business outcomes. A nil *Domain records nothing.
type Domain struct {
	Checkouts         *prometheus.CounterVec
	PromoApplications *prometheus.CounterVec
}

func New(namespace string, reg prometheus.Registerer) *Domain {
	d := &Domain{
		Checkouts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkouts_total",
			Help:      "Checkout attempts by result.",
		}, []string{"result"}),
		PromoApplications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "promo_applications_total",
			Help:      "Promo code applications by result.",
		}, []string{"result"}),
	}
	reg.MustRegister(d.Checkouts, d.PromoApplications)
	return d
}

func (d *Domain) Checkout(result string) {
	if d == nil {
		return
	}
	d.Checkouts.WithLabelValues(result).Inc()
}

func (d *Domain) Promo(result string) {
	if d == nil {
		return
	}
	d.PromoApplications.WithLabelValues(result).Inc()
}
