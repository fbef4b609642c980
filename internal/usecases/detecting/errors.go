package detecting

import "fmt"

// PersistenceError indica que os incidentes de uma execução não foram gravados.
// A execução é considerada falha e nenhum incidente dela foi registrado.
type PersistenceError struct {
	Err      error // Erro base
	Findings int   // Quantidade de achados que deixaram de ser registrados
}

// Error implementa a interface error
func (e *PersistenceError) Error() string {
	return fmt.Sprintf("erro ao registrar %d incidente(s): %s", e.Findings, e.Err.Error())
}

// Unwrap retorna o erro subjacente
func (e *PersistenceError) Unwrap() error {
	return e.Err
}
