package sqlinline

const QInsertSubscription = `--sql 60d447dd-4718-4219-8108-e5bd2d213b89
insert into subscriptions(id, principal_id, plan, status, renewed_at, created_at)
values (gen_random_uuid(), $1::uuid, $2::text, $3::text, now(), now())
returning id, renewed_at;
`
