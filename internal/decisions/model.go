package decisions

// Decision is one registry record eligible for analysis.
type Decision struct {
	ID          string `json:"numeroAcordao"`
	Title       string `json:"titulo"`
	Year        string `json:"anoAcordao"`
	Rapporteur  string `json:"relator"`
	Type        string `json:"tipo"`
	SessionDate string `json:"dataSessao"`
	Body        string `json:"colegiado"`
	ArtifactURL string `json:"urlArquivoPdf"`
}
