package sqlinline

const QSelectEntitlements = `--sql 01476b89-1f5a-4e68-99ec-d82965fe1150
select id, plan, scan_credits, login_bonus
from principals
where id = $1::uuid
limit 1;
`

// QConsumeScanCredit is the only statement allowed to decrement scan_credits.
// The predicate makes the decrement conditional so two concurrent callers can
// never both take the last credit: the row is locked for the update and the
// where clause re-evaluates against the committed value. Unmetered plans
// match the predicate without decrementing. Zero rows means no credit (or no
// such principal).
const QConsumeScanCredit = `--sql a8000b01-b982-4a1c-a60b-6ed539a54826
update principals
set scan_credits = case when plan = 'free' then scan_credits - 1 else scan_credits end,
    updated_at = now()
where id = $1::uuid
  and (plan <> 'free' or scan_credits > 0)
returning case when plan = 'free' then scan_credits else -1 end;
`

// QApplyLoginBonus grants the one-time bonus. The login_bonus = false
// predicate makes retries no-ops: zero rows means the bonus was already
// applied.
const QApplyLoginBonus = `--sql d4f67e99-7b00-461a-ae75-c7f496d430d0
update principals
set scan_credits = scan_credits + $2::int,
    login_bonus = true,
    updated_at = now()
where id = $1::uuid
  and login_bonus = false
returning scan_credits;
`

// QSetPlan updates the plan and resets the advisory usage mirror in the same
// statement so a guest-origin principal starts the paid plan with clean
// counters.
const QSetPlan = `--sql d485a4bb-5483-4b1f-8097-1e87c1c9c339
update principals
set plan = $2::text,
    properties = jsonb_set(properties, '{usage}', '{"scans":0,"history":0,"favorites":0}'::jsonb, true),
    updated_at = now()
where id = $1::uuid
returning id, plan, scan_credits, login_bonus;
`
