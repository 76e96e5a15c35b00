package sqlinline

// Operator queries used by the planctl tool.

const QAdminSelectPrincipalByID = `--sql 0765d04c-aff2-4b41-b209-053c222d79c2
select id, coalesce(email, ''), kind, plan, scan_credits, login_bonus
from principals
where id = $1::uuid
limit 1;
`

const QAdminSelectPrincipalByEmail = `--sql d11da173-5e3f-47ad-9a9e-2e6d81b81d3e
select id, coalesce(email, ''), kind, plan, scan_credits, login_bonus
from principals
where email = $1::text
limit 1;
`

// QGrantScanCredits is an operator-only top-up. It bypasses the login bonus
// flag on purpose; the conditional consume statement stays the only way
// credits go down.
const QGrantScanCredits = `--sql 530f9747-ea1c-4e1f-bbb8-3d5bad5158a9
update principals
set scan_credits = scan_credits + $2::int,
    updated_at = now()
where id = $1::uuid
returning scan_credits;
`
