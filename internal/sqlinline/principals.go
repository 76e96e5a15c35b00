package sqlinline

// Guests start with the guest scan allotment so their scans flow through the
// same authoritative consume path as registered users.
const QInsertGuestPrincipal = `--sql ca64f07f-28c7-4965-87e3-e7f795b0cc91
insert into principals(id, kind, plan, scan_credits, login_bonus, properties, created_at, updated_at)
values (gen_random_uuid(), 'guest', 'free', 5, false, '{}'::jsonb, now(), now())
returning id, kind, coalesce(email, ''), created_at;
`

const QSelectPrincipalByID = `--sql 3290512a-f25f-4760-a9d0-05fdae96d598
select id, kind, coalesce(email, ''), created_at
from principals
where id = $1::uuid
limit 1;
`

const QSelectCredentialsByEmail = `--sql 392e7c26-057a-470b-9f97-94a6f7db5258
select id, kind, email, coalesce(password_hash, ''), created_at
from principals
where email = $1::text
limit 1;
`

const QRegisterPrincipal = `--sql 7bfd16fc-bcbc-4f0e-a38d-911f9d9eda75
insert into principals(id, kind, email, password_hash, plan, scan_credits, login_bonus, properties, created_at, updated_at)
values (gen_random_uuid(), 'registered', $1::text, $2::text, 'free', 0, false, '{}'::jsonb, now(), now())
returning id, kind, email, created_at;
`

const QPromotePrincipal = `--sql eba17139-3837-4e3c-8b08-4e687ce25fe5
update principals
set kind = 'registered',
    email = $2::text,
    password_hash = $3::text,
    updated_at = now()
where id = $1::uuid
  and kind = 'guest'
returning id, kind, email, created_at;
`
