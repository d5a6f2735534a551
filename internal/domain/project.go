package domain

import "time"

// Project states as returned by the backend. The client never transitions them.
const (
	ProjectPlanning   = "PLANIFICACION"
	ProjectExecution  = "EJECUCION"
	ProjectFinished   = "FINALIZADO"
	StageWaiting      = "ESPERANDO_FINANCIAMIENTO"
	StageFunded       = "FINANCIADA"
	StageInProgress   = "EN_EJECUCION"
	StageCompleted    = "COMPLETADA"
	OfferPending      = "PENDIENTE"
	OfferAccepted     = "ACEPTADA"
	OfferRejected     = "RECHAZADA"
	ObservationOpen   = "PENDIENTE"
	ObservationClosed = "RESUELTA"
	ObservationLapsed = "VENCIDA"
)

// Project is an NGO project with its stages.
type Project struct {
	ID          string    `json:"id"`
	Nombre      string    `json:"nombre"`
	Descripcion string    `json:"descripcion"`
	Pais        string    `json:"pais,omitempty"`
	Estado      string    `json:"estado"`
	OwnerID     string    `json:"owner_id"`
	Ong         string    `json:"ong"`
	CaseID      string    `json:"case_id,omitempty"`
	Etapas      []Etapa   `json:"etapas,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Etapa is one project stage.
type Etapa struct {
	ID          string    `json:"id"`
	Nombre      string    `json:"nombre"`
	Descripcion string    `json:"descripcion,omitempty"`
	FechaInicio time.Time `json:"fecha_inicio"`
	FechaFin    time.Time `json:"fecha_fin"`
	Estado      string    `json:"estado"`
	Pedidos     []Pedido  `json:"pedidos,omitempty"`
}

// Pedido is a funding or resource request attached to a stage.
type Pedido struct {
	ID          string  `json:"id"`
	EtapaID     string  `json:"etapa_id"`
	Tipo        string  `json:"tipo"`
	Descripcion string  `json:"descripcion"`
	Cantidad    float64 `json:"cantidad,omitempty"`
	Unidad      string  `json:"unidad,omitempty"`
	Estado      string  `json:"estado"`
}

// Oferta is an offer against a pedido.
type Oferta struct {
	ID               string    `json:"id"`
	PedidoID         string    `json:"pedido_id"`
	UserID           string    `json:"user_id"`
	Ong              string    `json:"ong,omitempty"`
	Descripcion      string    `json:"descripcion"`
	MontoOfrecido    float64   `json:"monto_ofrecido,omitempty"`
	CantidadOfrecida float64   `json:"cantidad_ofrecida,omitempty"`
	Estado           string    `json:"estado"`
	CreatedAt        time.Time `json:"created_at"`
}

// Observacion is a time-boxed note from COUNCIL on a project.
type Observacion struct {
	ID              string     `json:"id"`
	ProyectoID      string     `json:"proyecto_id"`
	ConsejoID       string     `json:"consejo_id"`
	Descripcion     string     `json:"descripcion"`
	Estado          string     `json:"estado"`
	FechaLimite     time.Time  `json:"fecha_limite"`
	FechaResolucion *time.Time `json:"fecha_resolucion,omitempty"`
	Respuesta       string     `json:"respuesta,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

// Remaining returns the time left until the server-provided deadline.
// Negative when the deadline has passed.
func (o Observacion) Remaining(now time.Time) time.Duration {
	return o.FechaLimite.Sub(now)
}

// Overdue reports whether an open observation is past its deadline.
func (o Observacion) Overdue(now time.Time) bool {
	return o.Estado == ObservationOpen && now.After(o.FechaLimite)
}

// DashboardMetrics is the COUNCIL metrics view.
type DashboardMetrics struct {
	ProyectosTotales      int            `json:"proyectos_totales"`
	ProyectosPorEstado    map[string]int `json:"proyectos_por_estado"`
	PedidosTotales        int            `json:"pedidos_totales"`
	PedidosCubiertos      int            `json:"pedidos_cubiertos"`
	OfertasTotales        int            `json:"ofertas_totales"`
	OfertasAceptadas      int            `json:"ofertas_aceptadas"`
	ObservacionesAbiertas int            `json:"observaciones_abiertas"`
	ObservacionesVencidas int            `json:"observaciones_vencidas"`
}

// CoverageRatio returns the share of pedidos covered by accepted offers.
func (m DashboardMetrics) CoverageRatio() float64 {
	if m.PedidosTotales == 0 {
		return 0
	}
	return float64(m.PedidosCubiertos) / float64(m.PedidosTotales)
}

// NewProject is the create-project form.
type NewProject struct {
	Nombre      string     `json:"nombre" validate:"required,max=200"`
	Descripcion string     `json:"descripcion" validate:"required"`
	Pais        string     `json:"pais,omitempty" validate:"omitempty,max=100"`
	Etapas      []NewEtapa `json:"etapas" validate:"required,min=1,dive"`
}

// NewEtapa is a stage inside the create-project form.
type NewEtapa struct {
	Nombre      string      `json:"nombre" validate:"required,max=200"`
	Descripcion string      `json:"descripcion,omitempty"`
	FechaInicio time.Time   `json:"fecha_inicio" validate:"required"`
	FechaFin    time.Time   `json:"fecha_fin" validate:"required,gtfield=FechaInicio"`
	Pedidos     []NewPedido `json:"pedidos,omitempty" validate:"dive"`
}

// NewPedido is a request inside a new stage.
type NewPedido struct {
	Tipo        string  `json:"tipo" validate:"required,oneof=DINERO MATERIALES MANO_DE_OBRA OTRO"`
	Descripcion string  `json:"descripcion" validate:"required"`
	Cantidad    float64 `json:"cantidad,omitempty" validate:"gte=0"`
	Unidad      string  `json:"unidad,omitempty"`
}

// NewOferta is the submit-offer form.
type NewOferta struct {
	Descripcion      string  `json:"descripcion" validate:"required,max=1000"`
	MontoOfrecido    float64 `json:"monto_ofrecido,omitempty" validate:"gte=0"`
	CantidadOfrecida float64 `json:"cantidad_ofrecida,omitempty" validate:"gte=0"`
}

// NewObservacion is the raise-observation form.
type NewObservacion struct {
	Descripcion string `json:"descripcion" validate:"required,max=2000"`
}

// ResolveObservacion is the resolve-observation form.
type ResolveObservacion struct {
	Respuesta string `json:"respuesta" validate:"required,max=2000"`
}
