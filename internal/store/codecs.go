package store

import (
	"strings"

	"gestor/internal/core"
)

// Table names.
const (
	TableEntries     = "lancamentos"
	TableCards       = "cartoes"
	TableClients     = "clientes"
	TableCredentials = "acessos"
)

var (
	EntryColumns = []string{
		"OS", "NF", "Data_Vencimento", "Ambiente", "Tipo_Fluxo", "Descricao",
		"Categoria", "Valor", "Status", "Cliente", "Usuario", "Cartao", "Detalhes",
	}
	CardColumns       = []string{"Nome", "Limite_Total", "Usuario"}
	ClientColumns     = []string{"Nome", "Usuario"}
	CredentialColumns = []string{"Usuario", "Senha"}
)

// Tables lists every table with its columns.
func Tables() map[string][]string {
	return map[string][]string{
		TableEntries:     EntryColumns,
		TableCards:       CardColumns,
		TableClients:     ClientColumns,
		TableCredentials: CredentialColumns,
	}
}

func blank(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// Labels that fail to parse are kept verbatim so a round trip never rewrites them.
func environmentOf(s string) core.Environment {
	if v, err := core.ParseEnvironment(s); err == nil {
		return v
	}
	return core.Environment(s)
}

func flowOf(s string) core.Flow {
	if v, err := core.ParseFlow(s); err == nil {
		return v
	}
	return core.Flow(s)
}

func statusOf(s string) core.Status {
	if v, err := core.ParseStatus(s); err == nil {
		return v
	}
	return core.Status(s)
}

var EntryCodec = Codec[core.Entry]{
	Table:   TableEntries,
	Columns: EntryColumns,
	Encode:  core.Entry.Columns,
	Decode: func(c []string) (core.Entry, bool) {
		if blank(c) {
			return core.Entry{}, false
		}
		return core.Entry{
			ID:            c[0],
			Invoice:       c[1],
			DueDate:       core.ParseDate(c[2]),
			Environment:   environmentOf(c[3]),
			Flow:          flowOf(c[4]),
			Description:   c[5],
			Category:      c[6],
			Amount:        core.Normalize(c[7]),
			Status:        statusOf(c[8]),
			Client:        c[9],
			Tenant:        c[10],
			PaymentMethod: c[11],
			Notes:         c[12],
		}, true
	},
}

var CardCodec = Codec[core.Card]{
	Table:   TableCards,
	Columns: CardColumns,
	Encode: func(c core.Card) []string {
		return []string{c.Name, c.Limit.String(), c.Tenant}
	},
	Decode: func(c []string) (core.Card, bool) {
		if blank(c) {
			return core.Card{}, false
		}
		return core.Card{Name: c[0], Limit: core.Normalize(c[1]), Tenant: c[2]}, true
	},
}

var ClientCodec = Codec[core.Client]{
	Table:   TableClients,
	Columns: ClientColumns,
	Encode: func(c core.Client) []string {
		return []string{c.Name, c.Tenant}
	},
	Decode: func(c []string) (core.Client, bool) {
		if blank(c) {
			return core.Client{}, false
		}
		return core.Client{Name: c[0], Tenant: c[1]}, true
	},
}

var CredentialCodec = Codec[core.Credential]{
	Table:   TableCredentials,
	Columns: CredentialColumns,
	Encode: func(c core.Credential) []string {
		return []string{c.Username, c.PasswordHash}
	},
	Decode: func(c []string) (core.Credential, bool) {
		if strings.TrimSpace(c[0]) == "" {
			return core.Credential{}, false
		}
		return core.Credential{Username: c[0], PasswordHash: c[1]}, true
	},
}
